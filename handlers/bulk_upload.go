package handlers

import (
	"net/http"

	"feature_catalogue_app_go/config"
	"feature_catalogue_app_go/db"
	"feature_catalogue_app_go/middleware"
	"feature_catalogue_app_go/services"

	"github.com/labstack/echo/v4"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// readUploadedSheet parses the "file" form field as a workbook
func readUploadedSheet(c echo.Context) (*services.Sheet, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "No file uploaded")
	}

	maxBytes := int64(config.DefaultUploadMaxBytes)
	if cfg, ok := c.Get("config").(*config.Config); ok && cfg.UploadMaxBytes > 0 {
		maxBytes = cfg.UploadMaxBytes
	}
	if err := services.ValidateWorkbookUpload(file, maxBytes); err != nil {
		return nil, serviceError(err)
	}

	src, err := file.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to open file")
	}
	defer src.Close()

	sheet, err := services.ReadSheet(src)
	if err != nil {
		return nil, serviceError(err)
	}
	return sheet, nil
}

// GetUploadTemplateHandler serves the bulk upload workbook template
func GetUploadTemplateHandler(c echo.Context) error {
	buf, err := services.GenerateUploadTemplate()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate template")
	}

	c.Response().Header().Set("Content-Disposition", "attachment; filename=feature_upload_template.xlsx")
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

// BulkUploadHandler adds the rows of an uploaded workbook to the catalogue
func BulkUploadHandler(c echo.Context) error {
	sheet, err := readUploadedSheet(c)
	if err != nil {
		return err
	}

	result, err := services.BulkUpload(c.Request().Context(), db.DB, sheet, middleware.GetActor(c))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// ReplacePreviewHandler reports what a replacement would supersede
func ReplacePreviewHandler(c echo.Context) error {
	preview, err := services.PreviewReplacement(db.DB)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, preview)
}

// ReplaceFeaturesHandler supersedes the catalogue with an uploaded workbook
func ReplaceFeaturesHandler(c echo.Context) error {
	sheet, err := readUploadedSheet(c)
	if err != nil {
		return err
	}

	result, err := services.ReplaceCatalogue(c.Request().Context(), db.DB, sheet, middleware.GetActor(c))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, result)
}
