package middleware

import (
	"github.com/labstack/echo/v4"
)

const (
	ContextKeyActor = "actor"
	// AnonymousActor is recorded when no admin is authenticated
	AnonymousActor = "anonymous"
)

// AuditContext resolves the actor recorded on audit entries for this request
func AuditContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := GetCurrentAdmin(c)
			if actor == "" {
				actor = AnonymousActor
			}
			c.Set(ContextKeyActor, actor)
			return next(c)
		}
	}
}

// GetActor retrieves the audit actor from the request
func GetActor(c echo.Context) string {
	if actor, ok := c.Get(ContextKeyActor).(string); ok && actor != "" {
		return actor
	}
	if admin := GetCurrentAdmin(c); admin != "" {
		return admin
	}
	return AnonymousActor
}
