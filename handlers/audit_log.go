package handlers

import (
	"net/http"

	"feature_catalogue_app_go/db"
	"feature_catalogue_app_go/middleware"
	"feature_catalogue_app_go/models"
	"feature_catalogue_app_go/services"

	"github.com/labstack/echo/v4"
)

const auditLogPath = "/admin/audit-log"

// auditEntryView adds the field level diff to an audit entry
type auditEntryView struct {
	models.AuditLog
	Changes []models.AuditChange `json:"changes,omitempty"`
}

// GetAuditLogHandler returns audit entries newest first
func GetAuditLogHandler(c echo.Context) error {
	page, pageSize := pageParams(c)
	filters := services.AuditLogFilters{
		ActionType: c.QueryParam("action_type"),
		EntityType: c.QueryParam("entity_type"),
		Username:   c.QueryParam("username"),
		EntityID:   c.QueryParam("entity_id"),
	}

	logs, total, err := services.ListAuditLog(db.DB, filters, page, pageSize)
	if err != nil {
		return serviceError(err)
	}

	entries := make([]auditEntryView, 0, len(logs))
	for i := range logs {
		entry := auditEntryView{AuditLog: logs[i]}
		if logs[i].ActionType == models.AuditActionEdit {
			entry.Changes = logs[i].Changes()
		}
		entries = append(entries, entry)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries":   entries,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// RevertEditHandler restores the state before an edit and returns to the log
func RevertEditHandler(c echo.Context) error {
	if err := services.RevertEdit(c.Request().Context(), db.DB, c.Param("id"), middleware.GetActor(c)); err != nil {
		return serviceError(err)
	}
	return c.Redirect(http.StatusSeeOther, auditLogPath)
}

// RevertDeleteHandler re-creates a deleted element and returns to the log
func RevertDeleteHandler(c echo.Context) error {
	if err := services.RevertDelete(c.Request().Context(), db.DB, c.Param("id"), middleware.GetActor(c)); err != nil {
		return serviceError(err)
	}
	return c.Redirect(http.StatusSeeOther, auditLogPath)
}
