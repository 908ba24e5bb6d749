package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"feature_catalogue_app_go/db"
	"feature_catalogue_app_go/services"

	"github.com/labstack/echo/v4"
)

type responsesRequest struct {
	Action    string            `json:"action"`
	Responses map[string]string `json:"responses"`
}

// StartAssessmentHandler creates an assessment and points to its first component
func StartAssessmentHandler(c echo.Context) error {
	var input services.AssessmentInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	assessment, err := services.StartAssessment(c.Request().Context(), db.DB, input)
	if err != nil {
		if err == services.ErrMissingFields {
			return echo.NewHTTPError(http.StatusBadRequest, "All fields are required")
		}
		return serviceError(err)
	}

	next := fmt.Sprintf("/api/assessments/%s/summary", assessment.ID)
	first, err := services.FirstComponentCode(db.DB)
	switch {
	case err == nil:
		next = fmt.Sprintf("/api/assessments/%s/components/%s", assessment.ID, first)
	case !errors.Is(err, services.ErrComponentNotFound):
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"assessment": assessment,
		"next":       next,
	})
}

// ResumeAssessmentHandler finds an assessment by its code
func ResumeAssessmentHandler(c echo.Context) error {
	code := c.FormValue("code")
	if code == "" {
		code = c.QueryParam("code")
	}
	if strings.TrimSpace(code) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Code is required")
	}

	assessment, err := services.FindAssessmentByCode(db.DB, code)
	if err != nil {
		if err == services.ErrAssessmentNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Code not found")
		}
		return serviceError(err)
	}
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/api/assessments/%s/summary", assessment.ID))
}

// GetWalkthroughHandler returns one component of an assessment with saved answers
func GetWalkthroughHandler(c echo.Context) error {
	w, err := services.GetWalkthrough(db.DB, c.Param("id"), c.Param("code"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, w)
}

// SaveWalkthroughHandler stores a component's answers and moves on to the next
// component, or to the summary after the last one
func SaveWalkthroughHandler(c echo.Context) error {
	assessmentID := c.Param("id")
	componentCode := services.NormalizeComponentCode(c.Param("code"))

	var req responsesRequest
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
		}
	} else {
		params, err := c.FormParams()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid form data")
		}
		req.Responses = make(map[string]string)
		for key, values := range params {
			if key == "action" {
				req.Action = c.FormValue("action")
				continue
			}
			if len(values) > 0 {
				req.Responses[key] = values[0]
			}
		}
	}

	ctx := c.Request().Context()
	if err := services.SaveComponentResponses(ctx, db.DB, assessmentID, componentCode, req.Responses); err != nil {
		return serviceError(err)
	}

	summary := fmt.Sprintf("/api/assessments/%s/summary", assessmentID)
	if req.Action == "summary" {
		return c.Redirect(http.StatusSeeOther, summary)
	}
	w, err := services.GetWalkthrough(db.DB, assessmentID, componentCode)
	if err != nil {
		return serviceError(err)
	}
	if w.NextCode == "" {
		return c.Redirect(http.StatusSeeOther, summary)
	}
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/api/assessments/%s/components/%s", assessmentID, w.NextCode))
}

// GetAssessmentSummaryHandler returns answer counts per component
func GetAssessmentSummaryHandler(c echo.Context) error {
	summary, err := services.GetAssessmentSummary(db.DB, c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

// GetAssessmentReportHandler returns every feature with its answer
func GetAssessmentReportHandler(c echo.Context) error {
	assessment, components, err := services.GetAssessmentReport(db.DB, c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"assessment": assessment,
		"components": components,
	})
}

// ExportAssessmentHandler downloads the report as a workbook
func ExportAssessmentHandler(c echo.Context) error {
	buf, filename, err := services.ExportAssessment(db.DB, c.Param("id"))
	if err != nil {
		return serviceError(err)
	}

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ListAssessmentsHandler lists assessments with their completion
func ListAssessmentsHandler(c echo.Context) error {
	assessments, totalFeatures, err := services.ListAssessments(db.DB)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"assessments":    assessments,
		"total_features": totalFeatures,
	})
}

// DeleteAssessmentHandler removes an assessment and its answers
func DeleteAssessmentHandler(c echo.Context) error {
	if err := services.DeleteAssessment(c.Request().Context(), db.DB, c.Param("id")); err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
