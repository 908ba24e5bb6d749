package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"feature_catalogue_app_go/models"

	"gorm.io/gorm"
)

var (
	ErrLegacySetNotFound        = errors.New("legacy feature set not found")
	ErrLegacyAssessmentNotFound = errors.New("legacy assessment not found")
	ErrArchiveDisabled          = errors.New("no archive store is configured")
)

// LegacySetOverview is a legacy set with the number of entries it froze
type LegacySetOverview struct {
	models.LegacyFeatureSet
	FeatureCount int `json:"feature_count"`
}

// LegacyComponent groups snapshot features by component
type LegacyComponent struct {
	ComponentCode string           `json:"code"`
	ComponentName string           `json:"name"`
	Features      []models.Feature `json:"features"`
}

// LegacySetView is a read-only view of a legacy set
type LegacySetView struct {
	LegacySet   models.LegacyFeatureSet `json:"legacy_set"`
	Features    []models.Feature        `json:"features"`
	Components  []LegacyComponent       `json:"components"`
	Assessments []models.Assessment     `json:"assessments"`
}

// LegacyFeatureResponse is a snapshot feature with its recorded answer
type LegacyFeatureResponse struct {
	models.Feature
	Response string `json:"response"`
}

// LegacyAssessmentView shows a legacy assessment against the snapshot it was
// answered on
type LegacyAssessmentView struct {
	Assessment models.Assessment       `json:"assessment"`
	LegacySet  models.LegacyFeatureSet `json:"legacy_set"`
	Features   []LegacyFeatureResponse `json:"features"`
}

// ListLegacySets returns every legacy set, newest first
func ListLegacySets(db *gorm.DB) ([]LegacySetOverview, error) {
	var sets []models.LegacyFeatureSet
	if err := db.Order("created_at DESC").Find(&sets).Error; err != nil {
		return nil, err
	}

	out := make([]LegacySetOverview, 0, len(sets))
	for _, s := range sets {
		overview := LegacySetOverview{LegacyFeatureSet: s}
		if features, err := s.Features(); err == nil {
			overview.FeatureCount = len(features)
		}
		out = append(out, overview)
	}
	return out, nil
}

// GetLegacySet fetches one legacy set
func GetLegacySet(db *gorm.DB, id string) (*models.LegacyFeatureSet, error) {
	var set models.LegacyFeatureSet
	err := db.First(&set, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLegacySetNotFound
	}
	if err != nil {
		return nil, err
	}
	return &set, nil
}

// GetLegacySetView groups a legacy set's entries by component and lists the
// assessments linked to it
func GetLegacySetView(db *gorm.DB, id string) (*LegacySetView, error) {
	set, err := GetLegacySet(db, id)
	if err != nil {
		return nil, err
	}
	features, err := set.Features()
	if err != nil {
		return nil, fmt.Errorf("error parsing legacy features: %w", err)
	}

	byCode := make(map[string]*LegacyComponent)
	for _, f := range features {
		c, ok := byCode[f.ComponentCode]
		if !ok {
			c = &LegacyComponent{ComponentCode: f.ComponentCode, ComponentName: f.ComponentName}
			byCode[f.ComponentCode] = c
		}
		c.Features = append(c.Features, f)
	}
	components := make([]LegacyComponent, 0, len(byCode))
	for _, c := range byCode {
		components = append(components, *c)
	}
	sort.Slice(components, func(i, j int) bool { return components[i].ComponentCode < components[j].ComponentCode })

	view := &LegacySetView{LegacySet: *set, Features: features, Components: components}
	if err := db.Where("legacy_feature_set_id = ?", id).Order("created_at DESC").Find(&view.Assessments).Error; err != nil {
		return nil, err
	}
	return view, nil
}

// GetLegacyAssessmentView maps a legacy assessment's responses onto the
// snapshot it was linked to when its generation was superseded
func GetLegacyAssessmentView(db *gorm.DB, assessmentID string) (*LegacyAssessmentView, error) {
	var assessment models.Assessment
	err := db.Where("id = ? AND legacy = ?", assessmentID, true).First(&assessment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLegacyAssessmentNotFound
	}
	if err != nil {
		return nil, err
	}
	if assessment.LegacyFeatureSetID == nil {
		return nil, ErrLegacySetNotFound
	}

	set, err := GetLegacySet(db, *assessment.LegacyFeatureSetID)
	if err != nil {
		return nil, err
	}
	features, err := set.Features()
	if err != nil {
		return nil, fmt.Errorf("error parsing legacy features: %w", err)
	}
	answers, err := responseMap(db, assessmentID)
	if err != nil {
		return nil, err
	}

	view := &LegacyAssessmentView{Assessment: assessment, LegacySet: *set}
	for _, f := range features {
		response := answers[f.UniqueID]
		if response == "" {
			response = NotAnswered
		}
		view.Features = append(view.Features, LegacyFeatureResponse{Feature: f, Response: response})
	}
	return view, nil
}

// ExportLegacySet writes a legacy set in the upload format so it can be
// re-ingested or compared offline
func ExportLegacySet(db *gorm.DB, id string) ([]byte, string, error) {
	set, err := GetLegacySet(db, id)
	if err != nil {
		return nil, "", err
	}
	features, err := set.Features()
	if err != nil {
		return nil, "", fmt.Errorf("error parsing legacy features: %w", err)
	}

	headers := append(append([]string{}, RequiredColumns...), OptionalColumns...)
	rows := make([][]interface{}, 0, len(features))
	for _, f := range features {
		rows = append(rows, []interface{}{
			f.ComponentCode, f.FeatureGroupName, f.FeatureName, f.Description,
			f.AsA, f.IWant, f.ExpectedOutcomes, f.ServiceType,
		})
	}
	buf, err := WriteSheet("Features", headers, rows)
	if err != nil {
		return nil, "", err
	}
	return buf.Bytes(), set.Name + ".xlsx", nil
}

// OpenLegacyArchive opens the off-database JSON copy of a legacy set. The set
// must still exist in the database.
func OpenLegacyArchive(ctx context.Context, db *gorm.DB, id string) (io.ReadCloser, error) {
	if Archive == nil {
		return nil, ErrArchiveDisabled
	}
	if _, err := GetLegacySet(db, id); err != nil {
		return nil, err
	}
	return Archive.Get(ctx, LegacySetArchiveKey(id))
}
