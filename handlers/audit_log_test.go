package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"feature_catalogue_app_go/models"
	"feature_catalogue_app_go/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAuditLogHandler(t *testing.T) {
	testDB := setupTestDB(t)
	ctx := context.Background()

	seedComponent(t, testDB, "ACM", "Access")
	require.NoError(t, services.RenameComponent(ctx, testDB, "ACM", "Access Management", "admin"))

	_, c, rec := setupEcho(http.MethodGet, "/admin/audit-log?action_type=edit", nil)
	require.NoError(t, GetAuditLogHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Entries []struct {
			ActionType string `json:"action_type"`
			Changes    []struct {
				Field string `json:"field"`
				Old   string `json:"old"`
				New   string `json:"new"`
			} `json:"changes"`
		} `json:"entries"`
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Total)
	require.Len(t, body.Entries, 1)
	require.Len(t, body.Entries[0].Changes, 1)
	assert.Equal(t, "component_name", body.Entries[0].Changes[0].Field)
	assert.Equal(t, "Access", body.Entries[0].Changes[0].Old)
	assert.Equal(t, "Access Management", body.Entries[0].Changes[0].New)
	assert.Contains(t, rec.Body.String(), `"field":"component_name"`)
	assert.NotContains(t, rec.Body.String(), `"Field"`)
}

func TestRevertDeleteHandlerRedirects(t *testing.T) {
	testDB := setupTestDB(t)
	ctx := context.Background()

	seedComponent(t, testDB, "FEE", "Fees")
	seedFeature(t, testDB, "FEE", "Fees", "010", "Payments", "002", "Refund")
	require.NoError(t, services.DeleteFeature(ctx, testDB, "FEE-010-002", "admin"))

	var entry models.AuditLog
	require.NoError(t, testDB.Where("action_type = ?", models.AuditActionDelete).First(&entry).Error)

	_, c, rec := setupEcho(http.MethodPost, "/admin/audit-log/"+entry.ID+"/revert-delete", nil)
	c.SetParamNames("id")
	c.SetParamValues(entry.ID)

	require.NoError(t, RevertDeleteHandler(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/audit-log", rec.Header().Get("Location"))

	_, err := services.GetFeature(testDB, "FEE-010-002")
	assert.NoError(t, err)
}

func TestRevertEditHandlerRedirects(t *testing.T) {
	testDB := setupTestDB(t)

	seedComponent(t, testDB, "ACM", "Access")
	require.NoError(t, services.RenameComponent(context.Background(), testDB, "ACM", "Access Management", "admin"))

	var entry models.AuditLog
	require.NoError(t, testDB.Where("action_type = ?", models.AuditActionEdit).First(&entry).Error)

	_, c, rec := setupEcho(http.MethodPost, "/admin/audit-log/"+entry.ID+"/revert-edit", nil)
	c.SetParamNames("id")
	c.SetParamValues(entry.ID)

	require.NoError(t, RevertEditHandler(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	component, err := services.GetComponent(testDB, "ACM")
	require.NoError(t, err)
	assert.Equal(t, "Access", component.ComponentName)
}

func TestRevertHandlersUnknownEntry(t *testing.T) {
	setupTestDB(t)

	for _, handler := range []echo.HandlerFunc{RevertEditHandler, RevertDeleteHandler} {
		_, c, _ := setupEcho(http.MethodPost, "/admin/audit-log/missing/revert", nil)
		c.SetParamNames("id")
		c.SetParamValues("missing")

		err := handler(c)
		assert.Equal(t, http.StatusNotFound, httpErrorCode(t, err))
	}
}
