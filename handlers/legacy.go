package handlers

import (
	"fmt"
	"net/http"

	"feature_catalogue_app_go/db"
	"feature_catalogue_app_go/services"

	"github.com/labstack/echo/v4"
)

// ListLegacySetsHandler lists superseded catalogue generations
func ListLegacySetsHandler(c echo.Context) error {
	sets, err := services.ListLegacySets(db.DB)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, sets)
}

// GetLegacySetHandler shows one legacy set grouped by component
func GetLegacySetHandler(c echo.Context) error {
	view, err := services.GetLegacySetView(db.DB, c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, view)
}

// ExportLegacySetHandler downloads a legacy set in the upload format
func ExportLegacySetHandler(c echo.Context) error {
	data, filename, err := services.ExportLegacySet(db.DB, c.Param("id"))
	if err != nil {
		return serviceError(err)
	}

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, xlsxContentType, data)
}

// DownloadLegacyArchiveHandler streams the archived JSON copy of a legacy set
func DownloadLegacyArchiveHandler(c echo.Context) error {
	id := c.Param("id")
	body, err := services.OpenLegacyArchive(c.Request().Context(), db.DB, id)
	if err != nil {
		return serviceError(err)
	}
	defer body.Close()

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".json"))
	return c.Stream(http.StatusOK, echo.MIMEApplicationJSON, body)
}

// GetLegacyAssessmentHandler shows a legacy assessment against its snapshot
func GetLegacyAssessmentHandler(c echo.Context) error {
	view, err := services.GetLegacyAssessmentView(db.DB, c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, view)
}
