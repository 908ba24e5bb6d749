package handlers

import (
	"errors"
	"net/http"

	"feature_catalogue_app_go/logger"
	"feature_catalogue_app_go/services"

	"github.com/labstack/echo/v4"
)

// serviceError maps service errors onto HTTP errors. Unknown errors are
// logged and hidden behind a generic message.
func serviceError(err error) error {
	var missing *services.MissingColumnsError
	var replacement *services.ReplacementError

	switch {
	case errors.Is(err, services.ErrAuditEntryNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Audit log entry not found")
	case errors.Is(err, services.ErrComponentNotFound),
		errors.Is(err, services.ErrFeatureGroupNotFound),
		errors.Is(err, services.ErrFeatureNotFound),
		errors.Is(err, services.ErrAssessmentNotFound),
		errors.Is(err, services.ErrLegacySetNotFound),
		errors.Is(err, services.ErrLegacyAssessmentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, capitalize(err.Error()))
	case errors.Is(err, services.ErrComponentExists),
		errors.Is(err, services.ErrFeatureGroupExists),
		errors.Is(err, services.ErrFeatureExists),
		errors.Is(err, services.ErrAllocationConflict):
		return echo.NewHTTPError(http.StatusConflict, capitalize(err.Error()))
	case errors.Is(err, services.ErrAssessmentReadOnly):
		return echo.NewHTTPError(http.StatusForbidden, capitalize(err.Error()))
	case errors.Is(err, services.ErrRevertNotSupported),
		errors.Is(err, services.ErrIdentifierSpaceExhausted):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, capitalize(err.Error()))
	case errors.Is(err, services.ErrArchiveDisabled):
		return echo.NewHTTPError(http.StatusNotFound, capitalize(err.Error()))
	case errors.Is(err, services.ErrUploadTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "File is too large")
	case errors.Is(err, services.ErrMissingFields),
		errors.Is(err, services.ErrInvalidComponentCode),
		errors.Is(err, services.ErrInvalidGroupMode),
		errors.Is(err, services.ErrInvalidResponse),
		errors.Is(err, services.ErrFeatureNotInComponent),
		errors.Is(err, services.ErrEmptyUpload),
		errors.Is(err, services.ErrNotAWorkbook),
		errors.Is(err, services.ErrUnreadableSheet):
		return echo.NewHTTPError(http.StatusBadRequest, capitalize(err.Error()))
	case errors.As(err, &missing):
		return echo.NewHTTPError(http.StatusBadRequest, missing.Error())
	case errors.As(err, &replacement):
		logger.L().Errorw("feature set replacement incomplete", "step", replacement.Step, "legacy_set_id", replacement.LegacySetID, "error", replacement.Err)
		return echo.NewHTTPError(http.StatusInternalServerError, replacement.Error())
	}

	logger.L().Errorw("request failed", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "Something went wrong. Please try again.")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
