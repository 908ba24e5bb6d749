package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"feature_catalogue_app_go/logger"
	"feature_catalogue_app_go/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Replacement steps, in execution order
const (
	StepArchive        = "archive current features"
	StepMarkLegacy     = "mark assessments legacy"
	StepClear          = "clear features"
	StepAnchors        = "create component anchors"
	StepIngest         = "ingest new features"
	StepAudit          = "record audit entry"
	legacySetNameStamp = "2006-01-02 15-04-05"
)

// ReplacementError reports the step at which a replacement stopped. Earlier
// steps stay applied; LegacySetID is set once the archive exists.
type ReplacementError struct {
	Step        string
	LegacySetID string
	Err         error
}

func (e *ReplacementError) Error() string {
	if e.LegacySetID != "" {
		return fmt.Sprintf("feature set replacement failed at step %q (legacy set %s): %v", e.Step, e.LegacySetID, e.Err)
	}
	return fmt.Sprintf("feature set replacement failed at step %q: %v", e.Step, e.Err)
}

func (e *ReplacementError) Unwrap() error {
	return e.Err
}

// ReplacementResult is the outcome of a completed replacement
type ReplacementResult struct {
	Results       *IngestResult  `json:"results"`
	ArchivedCount int            `json:"archived_count"`
	LegacySetID   string         `json:"legacy_set_id"`
	ArchiveCopy   *ArchiveObject `json:"archive_copy,omitempty"`
}

// ReplacementPreview shows what a replacement would supersede
type ReplacementPreview struct {
	FeatureCount          int64 `json:"feature_count"`
	ActiveAssessmentCount int64 `json:"active_assessment_count"`
}

// PreviewReplacement counts the real features and the assessments that a
// replacement would archive and mark legacy
func PreviewReplacement(db *gorm.DB) (*ReplacementPreview, error) {
	preview := &ReplacementPreview{}
	if err := db.Model(&models.Feature{}).Scopes(models.RealFeatures).Count(&preview.FeatureCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Assessment{}).Where("legacy = ?", false).Count(&preview.ActiveAssessmentCount).Error; err != nil {
		return nil, err
	}
	return preview, nil
}

// LegacySetName names a snapshot after the moment it was taken
func LegacySetName(t time.Time) string {
	return "Feature Set " + t.Format(legacySetNameStamp)
}

// ReplaceCatalogue supersedes the current catalogue generation with the rows
// of sheet. The steps run one after another without a surrounding
// transaction; a failure leaves the earlier steps in place and is reported as
// a *ReplacementError.
func ReplaceCatalogue(ctx context.Context, db *gorm.DB, sheet *Sheet, actor string) (*ReplacementResult, error) {
	if err := CheckUpload(sheet); err != nil {
		return nil, err
	}

	db = db.WithContext(ctx)
	log := logger.L().With("actor", actor)
	fail := func(step, setID string, err error) (*ReplacementResult, error) {
		log.Errorw("feature set replacement failed", "step", step, "legacy_set_id", setID, "error", err)
		return nil, &ReplacementError{Step: step, LegacySetID: setID, Err: err}
	}

	// archive
	var current []models.Feature
	if err := db.Scopes(models.RealFeatures).
		Order("component_code, feature_group_code, feature_id").
		Find(&current).Error; err != nil {
		return fail(StepArchive, "", err)
	}
	if current == nil {
		current = []models.Feature{}
	}
	previousNames := make(map[string]string)
	var anchors []models.Feature
	if err := db.Where("feature_name = ?", models.PlaceholderName).Find(&anchors).Error; err != nil {
		return fail(StepArchive, "", err)
	}
	for _, e := range append(anchors, current...) {
		previousNames[e.ComponentCode] = e.ComponentName
	}

	snapshot, err := json.Marshal(current)
	if err != nil {
		return fail(StepArchive, "", err)
	}
	legacySet := models.LegacyFeatureSet{
		Name:         LegacySetName(time.Now()),
		FeaturesJSON: datatypes.JSON(snapshot),
	}
	if err := db.Create(&legacySet).Error; err != nil {
		return fail(StepArchive, "", err)
	}

	// mark assessments legacy
	if err := db.Model(&models.Assessment{}).
		Where("legacy = ? OR legacy IS NULL", false).
		Updates(map[string]interface{}{"legacy": true, "legacy_feature_set_id": legacySet.ID}).Error; err != nil {
		return fail(StepMarkLegacy, legacySet.ID, err)
	}

	// clear
	if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Feature{}).Error; err != nil {
		return fail(StepClear, legacySet.ID, err)
	}

	// anchors
	seen := make(map[string]bool)
	for _, row := range sheet.Rows {
		code := NormalizeComponentCode(row[ColumnComponentCode])
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		name := previousNames[code]
		if name == "" {
			name = code
		}
		anchor := models.NewComponentAnchor(code, name)
		if err := db.Create(&anchor).Error; err != nil {
			return fail(StepAnchors, legacySet.ID, err)
		}
	}

	// ingest
	results, err := IngestRows(ctx, db, sheet.Rows, actor)
	if err != nil {
		return fail(StepIngest, legacySet.ID, err)
	}

	// audit
	err = RecordAudit(db, models.AuditActionReplaceFeatureSet, models.AuditEntityFeatures, "",
		map[string]interface{}{"archivedCount": len(current), "legacySetId": legacySet.ID},
		map[string]interface{}{"insertedCount": results.Inserted},
		actor)
	if err != nil {
		return fail(StepAudit, legacySet.ID, err)
	}

	result := &ReplacementResult{
		Results:       results,
		ArchivedCount: len(current),
		LegacySetID:   legacySet.ID,
		ArchiveCopy:   copyToArchive(ctx, legacySet.ID, snapshot),
	}

	log.Infow("feature set replaced",
		"legacy_set_id", legacySet.ID,
		"archived", result.ArchivedCount,
		"inserted", results.Inserted,
		"skipped", results.Skipped)
	return result, nil
}

// copyToArchive stores the snapshot outside the database when an archive
// store is configured. Failures are logged and otherwise ignored.
func copyToArchive(ctx context.Context, setID string, snapshot []byte) *ArchiveObject {
	if Archive == nil {
		return nil
	}
	obj, err := Archive.Put(ctx, LegacySetArchiveKey(setID), snapshot, "application/json")
	if err != nil {
		logger.L().Warnw("failed to copy legacy set to archive", "legacy_set_id", setID, "backend", Archive.Name(), "error", err)
		return nil
	}
	return obj
}
