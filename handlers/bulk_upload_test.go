package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"testing"

	"feature_catalogue_app_go/models"
	"feature_catalogue_app_go/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbookBytes(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	buf, err := services.WriteSheet("Features", services.RequiredColumns, rows)
	require.NoError(t, err)
	return buf.Bytes()
}

func multipartUpload(t *testing.T, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "features.xlsx")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestBulkUploadHandler(t *testing.T) {
	testDB := setupTestDB(t)
	seedComponent(t, testDB, "ACM", "Access Management")

	content := workbookBytes(t, [][]interface{}{
		{"ACM", "Access", "Login", "Sign in", "Citizen"},
		{"ACM", "Access", "Logout", "", "Citizen"},
		{"ACM", "Access", "Reset password", "Reset", "Citizen"},
	})
	body, contentType := multipartUpload(t, content)

	_, c, rec := setupEcho(http.MethodPost, "/admin/bulk-upload", body)
	c.Request().Header.Set(echo.HeaderContentType, contentType)

	require.NoError(t, BulkUploadHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var result services.IngestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, []services.RowError{{Row: 3, Message: "Missing required fields"}}, result.Errors)

	var entry models.AuditLog
	require.NoError(t, testDB.Where("action_type = ?", models.AuditActionBulkUpload).First(&entry).Error)
	assert.Equal(t, "admin", entry.Username)
}

func TestBulkUploadHandlerRejectsMissingColumns(t *testing.T) {
	setupTestDB(t)

	buf, err := services.WriteSheet("Features", []string{"Component Code", "Feature Name"}, [][]interface{}{{"ACM", "Login"}})
	require.NoError(t, err)
	body, contentType := multipartUpload(t, buf.Bytes())

	_, c, _ := setupEcho(http.MethodPost, "/admin/bulk-upload", body)
	c.Request().Header.Set(echo.HeaderContentType, contentType)

	err = BulkUploadHandler(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httpErrorCode(t, err))
	assert.Contains(t, err.(*echo.HTTPError).Message, "Missing required columns")
}

func TestBulkUploadHandlerWithoutFile(t *testing.T) {
	setupTestDB(t)

	_, c, _ := setupEcho(http.MethodPost, "/admin/bulk-upload", nil)
	err := BulkUploadHandler(c)
	assert.Equal(t, http.StatusBadRequest, httpErrorCode(t, err))
}

func TestReplaceFeaturesHandler(t *testing.T) {
	testDB := setupTestDB(t)
	seedComponent(t, testDB, "ACM", "Access Management")
	seedFeature(t, testDB, "ACM", "Access Management", "010", "Access", "001", "Login")

	content := workbookBytes(t, [][]interface{}{
		{"ACM", "Identity", "Verify identity", "Check documents", "Citizen"},
	})
	body, contentType := multipartUpload(t, content)

	_, c, rec := setupEcho(http.MethodPost, "/admin/replace-features", body)
	c.Request().Header.Set(echo.HeaderContentType, contentType)

	require.NoError(t, ReplaceFeaturesHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var result services.ReplacementResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.ArchivedCount)
	assert.Equal(t, 1, result.Results.Inserted)
	assert.NotEmpty(t, result.LegacySetID)

	feature, err := services.GetFeature(testDB, "ACM-010-001")
	require.NoError(t, err)
	assert.Equal(t, "Verify identity", feature.FeatureName)
}

func TestGetUploadTemplateHandler(t *testing.T) {
	_, c, rec := setupEcho(http.MethodGet, "/admin/bulk-upload/template", nil)

	require.NoError(t, GetUploadTemplateHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get(echo.HeaderContentType))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Features"}, f.GetSheetList())
}

func TestBulkUploadHandlerRejectsNonWorkbook(t *testing.T) {
	setupTestDB(t)
	body, contentType := multipartUpload(t, []byte("Component Code,Feature Name\nACM,Login\n"))

	_, c, _ := setupEcho(http.MethodPost, "/admin/bulk-upload", body)
	c.Request().Header.Set(echo.HeaderContentType, contentType)

	err := BulkUploadHandler(c)
	assert.Equal(t, http.StatusBadRequest, httpErrorCode(t, err))
}
