package services

import (
	"testing"

	"feature_catalogue_app_go/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCatalogueTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique shared memory name keeps tests isolated while every pooled
	// connection sees the same database
	dbName := "mem_" + uuid.New().String()
	db, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Feature{},
		&models.Assessment{},
		&models.AssessmentResponse{},
		&models.LegacyFeatureSet{},
		&models.AuditLog{},
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedComponent(t *testing.T, db *gorm.DB, code, name string) {
	t.Helper()
	anchor := models.NewComponentAnchor(code, name)
	require.NoError(t, db.Create(&anchor).Error)
}

func seedFeature(t *testing.T, db *gorm.DB, code, name, groupCode, groupName, featureID, featureName string) models.Feature {
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
		IWant:            "to use " + featureName,
		ExpectedOutcomes: featureName + " works",
		ServiceType:      models.DefaultServiceType,
	}
	require.NoError(t, db.Create(&f).Error)
	return f
}

func uploadRow(code, group, feature, description, roles string) Row {
	return Row{
		ColumnComponentCode:    code,
		ColumnFeatureGroupName: group,
		ColumnFeatureName:      feature,
		ColumnDescription:      description,
		ColumnUserRoles:        roles,
	}
}

func uploadSheet(rows ...Row) *Sheet {
	return &Sheet{
		Headers: append(append([]string{}, RequiredColumns...), OptionalColumns...),
		Rows:    rows,
	}
}
