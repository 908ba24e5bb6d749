package middleware

import (
	"crypto/subtle"
	"net/http"

	"feature_catalogue_app_go/config"
	"feature_catalogue_app_go/logger"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"
)

const (
	// ContextKeyAdmin is the context key for the authenticated admin username
	ContextKeyAdmin = "admin"
	adminRealm      = "Feature Catalogue Admin"
)

// RequireAdmin protects admin routes with HTTP basic auth checked against the
// configured bcrypt hash. Clients that fail too often are locked out.
func RequireAdmin(cfg *config.Config, guard *LoginGuard) echo.MiddlewareFunc {
	if guard == nil {
		guard = NewLoginGuard(DefaultLockoutConfig)
	}

	basic := echomiddleware.BasicAuthWithConfig(echomiddleware.BasicAuthConfig{
		Realm: adminRealm,
		Validator: func(username, password string, c echo.Context) (bool, error) {
			if cfg.AdminPasswordHash == "" {
				return false, nil
			}
			userOK := subtle.ConstantTimeCompare([]byte(username), []byte(cfg.AdminUsername)) == 1
			passOK := bcrypt.CompareHashAndPassword([]byte(cfg.AdminPasswordHash), []byte(password)) == nil
			if !userOK || !passOK {
				guard.RecordFailure(c.RealIP())
				logger.L().Warnw("admin authentication failed", "ip", c.RealIP(), "username", username)
				return false, nil
			}
			guard.RecordSuccess(c.RealIP())
			c.Set(ContextKeyAdmin, username)
			return true, nil
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		protected := basic(next)
		return func(c echo.Context) error {
			if locked, until := guard.Locked(c.RealIP()); locked {
				c.Response().Header().Set("Retry-After", until.UTC().Format(http.TimeFormat))
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many failed login attempts. Please try again later.")
			}
			return protected(c)
		}
	}
}

// GetCurrentAdmin returns the authenticated admin username, if any
func GetCurrentAdmin(c echo.Context) string {
	if name, ok := c.Get(ContextKeyAdmin).(string); ok {
		return name
	}
	return ""
}
