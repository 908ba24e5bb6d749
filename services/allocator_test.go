package services

import (
	"context"
	"errors"
	"testing"

	"feature_catalogue_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNextGroupCodeArithmetic(t *testing.T) {
	tests := []struct {
		max  int
		want string
	}{
		{0, "010"},
		{1, "010"},
		{9, "010"},
		{10, "020"},
		{15, "020"},
		{20, "030"},
		{980, "990"},
	}
	for _, tt := range tests {
		got, err := nextGroupCode(tt.max)
		require.NoError(t, err, "max %d", tt.max)
		assert.Equal(t, tt.want, got, "max %d", tt.max)
	}

	_, err := nextGroupCode(990)
	assert.ErrorIs(t, err, ErrIdentifierSpaceExhausted)
}

func TestNextFeatureIDArithmetic(t *testing.T) {
	got, err := nextFeatureID(0)
	require.NoError(t, err)
	assert.Equal(t, "001", got)

	got, err = nextFeatureID(41)
	require.NoError(t, err)
	assert.Equal(t, "042", got)

	got, err = nextFeatureID(997)
	require.NoError(t, err)
	assert.Equal(t, "998", got)

	_, err = nextFeatureID(998)
	assert.ErrorIs(t, err, ErrIdentifierSpaceExhausted)
}

func TestNextGroupCodeFromStore(t *testing.T) {
	db := setupCatalogueTestDB(t)
	ctx := context.Background()

	seedComponent(t, db, "ACM", "Access Management")

	t.Run("component anchor only", func(t *testing.T) {
		code, err := NextGroupCode(ctx, db, "ACM")
		require.NoError(t, err)
		assert.Equal(t, "010", code, "reserved 999 of the component anchor must not count")
	})

	t.Run("group anchors count", func(t *testing.T) {
		anchor := models.NewGroupAnchor("ACM", "Access Management", "010", "Access")
		require.NoError(t, db.Create(&anchor).Error)

		code, err := NextGroupCode(ctx, db, "ACM")
		require.NoError(t, err)
		assert.Equal(t, "020", code)
	})

	t.Run("real features count", func(t *testing.T) {
		seedFeature(t, db, "ACM", "Access Management", "040", "Audit", "001", "Audit trail")

		code, err := NextGroupCode(ctx, db, "ACM")
		require.NoError(t, err)
		assert.Equal(t, "050", code)
	})

	t.Run("unknown component starts at 010", func(t *testing.T) {
		code, err := NextGroupCode(ctx, db, "ZZZ")
		require.NoError(t, err)
		assert.Equal(t, "010", code)
	})
}

func TestNextFeatureIDFromStore(t *testing.T) {
	db := setupCatalogueTestDB(t)
	ctx := context.Background()

	anchor := models.NewGroupAnchor("FEE", "Fees", "010", "Payments")
	require.NoError(t, db.Create(&anchor).Error)

	id, err := NextFeatureID(ctx, db, "FEE", "010")
	require.NoError(t, err)
	assert.Equal(t, "001", id, "group anchor 000 must not count")

	seedFeature(t, db, "FEE", "Fees", "010", "Payments", "001", "Pay online")
	seedFeature(t, db, "FEE", "Fees", "010", "Payments", "007", "Refund")

	id, err = NextFeatureID(ctx, db, "FEE", "010")
	require.NoError(t, err)
	assert.Equal(t, "008", id)

	id, err = NextFeatureID(ctx, db, "FEE", "020")
	require.NoError(t, err)
	assert.Equal(t, "001", id)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: features.unique_id")))
	assert.False(t, isUniqueViolation(errors.New("disk I/O error")))
}

func TestDuplicatePositionIsRejected(t *testing.T) {
	db := setupCatalogueTestDB(t)

	seedFeature(t, db, "ACM", "Access Management", "010", "Access", "001", "Login")

	dup := models.Feature{
		UniqueID:         "ACM-010-001-B",
		ComponentCode:    "ACM",
		ComponentName:    "Access Management",
		FeatureGroupCode: "010",
		FeatureGroupName: "Access",
		FeatureID:        "001",
		FeatureName:      "Logout",
	}
	err := db.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))
}
