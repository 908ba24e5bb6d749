package services

import (
	"context"
	"strings"
	"testing"

	"feature_catalogue_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func setupAssessmentCatalogue(t *testing.T) *gorm.DB {
	t.Helper()
	db := setupCatalogueTestDB(t)
	seedComponent(t, db, "ACM", "Access Management")
	seedComponent(t, db, "EMP", "Empty")
	seedComponent(t, db, "FEE", "Fees")
	seedFeature(t, db, "ACM", "Access Management", "010", "Access", "001", "Login")
	seedFeature(t, db, "ACM", "Access Management", "010", "Access", "002", "Logout")
	seedFeature(t, db, "FEE", "Fees", "010", "Payments", "001", "Pay online")
	return db
}

func startTestAssessment(t *testing.T, db *gorm.DB) *models.Assessment {
	t.Helper()
	a, err := StartAssessment(context.Background(), db, AssessmentInput{
		UserName:    "Ana",
		ServiceName: "Permits",
		ServiceType: "Digital",
	})
	require.NoError(t, err)
	return a
}

func TestGenerateAssessmentCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateAssessmentCode()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(assessmentCodeAlphabet, r), "unexpected %q", r)
		}
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "0")
		assert.NotContains(t, code, "I")
		assert.NotContains(t, code, "1")
	}
}

func TestStartAndResumeAssessment(t *testing.T) {
	db := setupAssessmentCatalogue(t)

	a := startTestAssessment(t, db)
	assert.NotEmpty(t, a.ID)
	assert.Len(t, a.Code, 6)
	assert.False(t, a.Legacy)

	found, err := FindAssessmentByCode(db, " "+strings.ToLower(a.Code)+" ")
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)

	_, err = FindAssessmentByCode(db, "ZZZZZZ")
	assert.ErrorIs(t, err, ErrAssessmentNotFound)

	_, err = StartAssessment(context.Background(), db, AssessmentInput{UserName: "Ana"})
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestWalkthroughSkipsEmptyComponents(t *testing.T) {
	db := setupAssessmentCatalogue(t)
	a := startTestAssessment(t, db)

	first, err := FirstComponentCode(db)
	require.NoError(t, err)
	assert.Equal(t, "ACM", first)

	w, err := GetWalkthrough(db, a.ID, "acm")
	require.NoError(t, err)
	assert.Equal(t, 1, w.ComponentNumber)
	assert.Equal(t, 2, w.TotalComponents)
	assert.Equal(t, "", w.PrevCode)
	assert.Equal(t, "FEE", w.NextCode)
	assert.Len(t, w.Features, 2)
	assert.NotEmpty(t, w.Description.Summary)

	_, err = GetWalkthrough(db, a.ID, "EMP")
	assert.ErrorIs(t, err, ErrComponentNotFound)

	_, err = GetWalkthrough(db, "missing", "ACM")
	assert.ErrorIs(t, err, ErrAssessmentNotFound)
}

func TestSaveComponentResponsesReplacesAnswers(t *testing.T) {
	db := setupAssessmentCatalogue(t)
	ctx := context.Background()
	a := startTestAssessment(t, db)

	require.NoError(t, SaveComponentResponses(ctx, db, a.ID, "ACM", map[string]string{
		"ACM-010-001": models.ResponseYes,
		"ACM-010-002": models.ResponseNo,
	}))
	require.NoError(t, SaveComponentResponses(ctx, db, a.ID, "ACM", map[string]string{
		"ACM-010-002": models.ResponseMaybe,
	}))

	w, err := GetWalkthrough(db, a.ID, "ACM")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ACM-010-002": models.ResponseMaybe}, w.Responses)

	err = SaveComponentResponses(ctx, db, a.ID, "ACM", map[string]string{"ACM-010-001": "perhaps"})
	assert.ErrorIs(t, err, ErrInvalidResponse)

	err = SaveComponentResponses(ctx, db, a.ID, "ACM", map[string]string{"FEE-010-001": models.ResponseYes})
	assert.ErrorIs(t, err, ErrFeatureNotInComponent)

	w, err = GetWalkthrough(db, a.ID, "ACM")
	require.NoError(t, err)
	assert.Len(t, w.Responses, 1, "rejected saves leave earlier answers untouched")
}

func TestLegacyAssessmentIsReadOnly(t *testing.T) {
	db := setupAssessmentCatalogue(t)
	a := startTestAssessment(t, db)
	require.NoError(t, db.Model(a).Update("legacy", true).Error)

	err := SaveComponentResponses(context.Background(), db, a.ID, "ACM", map[string]string{
		"ACM-010-001": models.ResponseYes,
	})
	assert.ErrorIs(t, err, ErrAssessmentReadOnly)
}

func TestAssessmentSummaryAndReport(t *testing.T) {
	db := setupAssessmentCatalogue(t)
	ctx := context.Background()
	a := startTestAssessment(t, db)

	require.NoError(t, SaveComponentResponses(ctx, db, a.ID, "ACM", map[string]string{
		"ACM-010-001": models.ResponseYes,
		"ACM-010-002": models.ResponseYes,
	}))

	summary, err := GetAssessmentSummary(db, a.ID)
	require.NoError(t, err)
	require.Len(t, summary.ComponentStats, 1)
	assert.Equal(t, "ACM", summary.ComponentStats[0].ComponentCode)
	assert.Equal(t, "Access Management", summary.ComponentStats[0].ComponentName)
	assert.Equal(t, int64(2), summary.ComponentStats[0].Yes)
	assert.Equal(t, int64(0), summary.ComponentStats[0].No)
	require.Len(t, summary.NotAssessed, 1)
	assert.Equal(t, "FEE", summary.NotAssessed[0].ComponentCode)

	_, components, err := GetAssessmentReport(db, a.ID)
	require.NoError(t, err)
	require.Len(t, components, 2)
	assert.Equal(t, models.ResponseYes, components[0].Features[0].Response)
	assert.Equal(t, NotAnswered, components[1].Features[0].Response)

	overview, total, err := ListAssessments(db)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, overview, 1)
	assert.Equal(t, int64(2), overview[0].ResponsesCount)
	assert.Equal(t, 67, overview[0].PercentComplete)
}

func TestExportAssessment(t *testing.T) {
	db := setupAssessmentCatalogue(t)
	a := startTestAssessment(t, db)
	require.NoError(t, SaveComponentResponses(context.Background(), db, a.ID, "FEE", map[string]string{
		"FEE-010-001": models.ResponseNo,
	}))

	buf, filename, err := ExportAssessment(db, a.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filename, "assessment-"+a.Code+"-"))
	assert.True(t, strings.HasSuffix(filename, ".xlsx"))

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Assessment")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Response", rows[0][5])
	assert.Equal(t, []string{"FEE", "Fees", "FEE-010-001", "Pay online", "Pay online description", "no"}, rows[3])
}

func TestDeleteAssessment(t *testing.T) {
	db := setupAssessmentCatalogue(t)
	ctx := context.Background()
	a := startTestAssessment(t, db)
	require.NoError(t, SaveComponentResponses(ctx, db, a.ID, "ACM", map[string]string{"ACM-010-001": models.ResponseYes}))

	require.NoError(t, DeleteAssessment(ctx, db, a.ID))

	var responses int64
	db.Model(&models.AssessmentResponse{}).Where("assessment_id = ?", a.ID).Count(&responses)
	assert.Equal(t, int64(0), responses)
	assert.ErrorIs(t, DeleteAssessment(ctx, db, a.ID), ErrAssessmentNotFound)
}

func TestCompareFeatures(t *testing.T) {
	db := setupAssessmentCatalogue(t)

	features, missing, err := CompareFeatures(db, []string{"FEE-010-001", "ACM-010-001", "ACM-010-001", "NOPE-1", " "})
	require.NoError(t, err)
	assert.Equal(t, 1, missing)
	require.Len(t, features, 2)
	assert.Equal(t, "ACM-010-001", features[0].UniqueID)

	features, missing, err = CompareFeatures(db, nil)
	require.NoError(t, err)
	assert.Empty(t, features)
	assert.Equal(t, 0, missing)
}
