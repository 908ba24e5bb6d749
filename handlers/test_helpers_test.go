package handlers

import (
	"feature_catalogue_app_go/config"
	"feature_catalogue_app_go/db"
	"feature_catalogue_app_go/middleware"
	"feature_catalogue_app_go/models"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// Use unique shared memory name to isolate tests
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{
		TranslateError: true,
	})
	assert.NoError(t, err)

	err = testDB.AutoMigrate(
		&models.Feature{},
		&models.Assessment{},
		&models.AssessmentResponse{},
		&models.LegacyFeatureSet{},
		&models.AuditLog{},
	)
	assert.NoError(t, err)

	// Set global DB
	db.DB = testDB

	return testDB
}

func setupEcho(method, path string, body io.Reader) (*echo.Echo, echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	// Add config to context
	c.Set("config", &config.Config{
		Environment:    "test",
		UploadMaxBytes: config.DefaultUploadMaxBytes,
	})
	c.Set(middleware.ContextKeyActor, "admin")

	return e, c, rec
}

func seedFeature(t *testing.T, testDB *gorm.DB, code, name, groupCode, groupName, featureID, featureName string) models.Feature {
	t.Helper()
	f := models.Feature{
		UniqueID:         models.BuildUniqueID(code, groupCode, featureID),
		ComponentCode:    code,
		ComponentName:    name,
		FeatureGroupCode: groupCode,
		FeatureGroupName: groupName,
		FeatureID:        featureID,
		FeatureName:      featureName,
		Description:      featureName + " description",
		AsA:              "Citizen",
		ServiceType:      models.DefaultServiceType,
	}
	require.NoError(t, testDB.Create(&f).Error)
	return f
}

func seedComponent(t *testing.T, testDB *gorm.DB, code, name string) {
	t.Helper()
	anchor := models.NewComponentAnchor(code, name)
	require.NoError(t, testDB.Create(&anchor).Error)
}

func httpErrorCode(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T (%v)", err, err)
	return he.Code
}
