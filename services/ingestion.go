package services

import (
	"context"
	"fmt"
	"strings"

	"feature_catalogue_app_go/logger"
	"feature_catalogue_app_go/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HeaderRowOffset converts a zero-based data row index into the spreadsheet
// row number shown to users (1-based plus the header row).
const HeaderRowOffset = 2

// IngestResult summarises one ingestion run
type IngestResult struct {
	Inserted int        `json:"inserted"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors"`
}

// ingestState holds the lookups for one ingestion run. It is built from the
// store once and then kept current by the run itself.
type ingestState struct {
	components map[string]string            // code -> display name
	groups     map[string]map[string]groupRef // code -> lower-cased group name -> group
	maxGroup   map[string]int               // code -> highest group code
	maxFeature map[string]int               // code-group -> highest feature id
}

// groupRef is a group as stored: its code and the display name every entry of
// the group carries
type groupRef struct {
	code string
	name string
}

func featureKey(componentCode, groupCode string) string {
	return componentCode + "-" + groupCode
}

func loadIngestState(db *gorm.DB) (*ingestState, error) {
	state := &ingestState{
		components: make(map[string]string),
		groups:     make(map[string]map[string]groupRef),
		maxGroup:   make(map[string]int),
		maxFeature: make(map[string]int),
	}

	var entries []models.Feature
	if err := db.Select("component_code", "component_name", "feature_group_code", "feature_group_name", "feature_id", "feature_name").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load catalogue: %w", err)
	}

	for i := range entries {
		e := &entries[i]
		if name, ok := state.components[e.ComponentCode]; !ok || name == "" {
			state.components[e.ComponentCode] = e.ComponentName
		}

		if e.Kind() == models.KindComponentAnchor {
			continue
		}

		groupCode := parseCode(e.FeatureGroupCode)
		if groupCode > state.maxGroup[e.ComponentCode] {
			state.maxGroup[e.ComponentCode] = groupCode
		}
		if e.FeatureGroupName != "" {
			if state.groups[e.ComponentCode] == nil {
				state.groups[e.ComponentCode] = make(map[string]groupRef)
			}
			key := strings.ToLower(e.FeatureGroupName)
			if _, exists := state.groups[e.ComponentCode][key]; !exists {
				state.groups[e.ComponentCode][key] = groupRef{code: e.FeatureGroupCode, name: e.FeatureGroupName}
			}
		}

		if e.Kind() == models.KindFeature {
			fk := featureKey(e.ComponentCode, e.FeatureGroupCode)
			if id := parseCode(e.FeatureID); id > state.maxFeature[fk] {
				state.maxFeature[fk] = id
			}
		}
	}

	return state, nil
}

// resolveGroup finds the group for a name, matched case-insensitively, and
// allocates a new one when the component has no group of that name yet. A new
// group keeps the spelling of the row that created it.
func (s *ingestState) resolveGroup(componentCode, groupName string) (groupRef, error) {
	key := strings.ToLower(groupName)
	if ref, ok := s.groups[componentCode][key]; ok {
		return ref, nil
	}

	code, err := nextGroupCode(s.maxGroup[componentCode])
	if err != nil {
		return groupRef{}, err
	}
	if s.groups[componentCode] == nil {
		s.groups[componentCode] = make(map[string]groupRef)
	}
	ref := groupRef{code: code, name: groupName}
	s.groups[componentCode][key] = ref
	s.maxGroup[componentCode] = parseCode(code)
	return ref, nil
}

// allocateFeatureID reserves the next feature id of a group for this run.
func (s *ingestState) allocateFeatureID(componentCode, groupCode string) (string, error) {
	fk := featureKey(componentCode, groupCode)
	id, err := nextFeatureID(s.maxFeature[fk])
	if err != nil {
		return "", err
	}
	s.maxFeature[fk] = parseCode(id)
	return id, nil
}

// IngestRows validates each row, allocates identifiers and inserts the
// resulting features. A failing row is recorded and skipped; only a failure
// to read the current catalogue aborts the run.
func IngestRows(ctx context.Context, db *gorm.DB, rows []Row, actor string) (*IngestResult, error) {
	db = db.WithContext(ctx)
	runID := uuid.New().String()
	log := logger.L().With("ingestion_run", runID, "actor", actor)

	state, err := loadIngestState(db)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{Errors: []RowError{}}
	skip := func(index int, message string) {
		result.Errors = append(result.Errors, RowError{Row: index + HeaderRowOffset, Message: message})
		result.Skipped++
	}

	for i, row := range rows {
		draft, rowErr := ValidateRow(row, state.components)
		if rowErr != nil {
			skip(i, rowErr.Message)
			continue
		}

		if draft.ComponentName == "" {
			skip(i, fmt.Sprintf("Could not find component name for %s", draft.ComponentCode))
			continue
		}

		group, err := state.resolveGroup(draft.ComponentCode, draft.FeatureGroupName)
		if err != nil {
			skip(i, fmt.Sprintf("Could not allocate feature group code for %s: %v", draft.ComponentCode, err))
			continue
		}

		featureID, err := state.allocateFeatureID(draft.ComponentCode, group.code)
		if err != nil {
			skip(i, fmt.Sprintf("Could not allocate feature id for %s-%s: %v", draft.ComponentCode, group.code, err))
			continue
		}

		feature := models.Feature{
			UniqueID:         models.BuildUniqueID(draft.ComponentCode, group.code, featureID),
			ComponentCode:    draft.ComponentCode,
			ComponentName:    draft.ComponentName,
			FeatureGroupCode: group.code,
			FeatureGroupName: group.name,
			FeatureID:        featureID,
			FeatureName:      draft.FeatureName,
			Description:      draft.Description,
			AsA:              draft.AsA,
			IWant:            draft.IWant,
			ExpectedOutcomes: draft.ExpectedOutcomes,
			ServiceType:      draft.ServiceType,
		}
		if err := db.Create(&feature).Error; err != nil {
			skip(i, fmt.Sprintf("Database error: %v", err))
			continue
		}
		result.Inserted++
	}

	log.Infow("ingestion finished", "rows", len(rows), "inserted", result.Inserted, "skipped", result.Skipped)
	return result, nil
}

// BulkUpload adds the rows of an uploaded sheet to the current catalogue and
// records one audit entry for the whole batch. Structural problems reject the
// upload before anything is written.
func BulkUpload(ctx context.Context, db *gorm.DB, sheet *Sheet, actor string) (*IngestResult, error) {
	if err := CheckUpload(sheet); err != nil {
		return nil, err
	}

	result, err := IngestRows(ctx, db, sheet.Rows, actor)
	if err != nil {
		return nil, err
	}

	// rows are committed at this point
	err = RecordAudit(db.WithContext(ctx), models.AuditActionBulkUpload, models.AuditEntityFeatures, "", nil,
		map[string]int{"count": result.Inserted, "errors": len(result.Errors)}, actor)
	if err != nil {
		logger.L().Errorw("failed to record bulk upload audit entry", "actor", actor, "inserted", result.Inserted, "error", err)
	}
	return result, nil
}
