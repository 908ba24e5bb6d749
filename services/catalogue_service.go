package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"feature_catalogue_app_go/models"

	"gorm.io/gorm"
)

var (
	ErrComponentNotFound    = errors.New("component not found")
	ErrComponentExists      = errors.New("component code already exists")
	ErrInvalidComponentCode = errors.New("component code must be 2 to 10 letters or digits")
	ErrFeatureGroupNotFound = errors.New("feature group not found")
	ErrFeatureGroupExists   = errors.New("a feature group with this name already exists")
	ErrFeatureNotFound      = errors.New("feature not found")
	ErrFeatureExists        = errors.New("feature already exists")
	ErrMissingFields        = errors.New("missing required fields")
	ErrInvalidGroupMode     = errors.New("group mode must be new or existing")
)

var componentCodePattern = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

// ComponentSummary is a component with the number of real features under it
type ComponentSummary struct {
	ComponentCode string `json:"component_code"`
	ComponentName string `json:"component_name"`
	FeatureCount  int64  `json:"feature_count"`
}

// FeatureGroupSummary is a feature group with the number of real features in it
type FeatureGroupSummary struct {
	ComponentCode    string `json:"component_code"`
	ComponentName    string `json:"component_name"`
	FeatureGroupCode string `json:"feature_group_code"`
	FeatureGroupName string `json:"feature_group_name"`
	FeatureCount     int64  `json:"feature_count"`
}

// CatalogueStats are the headline numbers of the current generation
type CatalogueStats struct {
	Components    int64 `json:"components"`
	FeatureGroups int64 `json:"feature_groups"`
	Features      int64 `json:"features"`
	Assessments   int64 `json:"assessments"`
}

// NormalizeComponentCode trims and upper-cases a component code
func NormalizeComponentCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func placeholderCount() string {
	return "SUM(CASE WHEN feature_name <> '" + models.PlaceholderName + "' THEN 1 ELSE 0 END)"
}

// ListComponents returns every component, including those without features
func ListComponents(db *gorm.DB) ([]ComponentSummary, error) {
	var components []ComponentSummary
	err := db.Model(&models.Feature{}).
		Select("component_code, MAX(component_name) AS component_name, " + placeholderCount() + " AS feature_count").
		Group("component_code").
		Order("component_code").
		Scan(&components).Error
	return components, err
}

// GetComponent returns one component summary
func GetComponent(db *gorm.DB, code string) (*ComponentSummary, error) {
	var components []ComponentSummary
	err := db.Model(&models.Feature{}).
		Select("component_code, MAX(component_name) AS component_name, "+placeholderCount()+" AS feature_count").
		Where("component_code = ?", NormalizeComponentCode(code)).
		Group("component_code").
		Scan(&components).Error
	if err != nil {
		return nil, err
	}
	if len(components) == 0 {
		return nil, ErrComponentNotFound
	}
	return &components[0], nil
}

func componentExists(tx *gorm.DB, code string) (bool, error) {
	var count int64
	if err := tx.Model(&models.Feature{}).Where("component_code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func componentName(tx *gorm.DB, code string) (string, error) {
	var entry models.Feature
	err := tx.Select("component_name").Where("component_code = ?", code).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrComponentNotFound
	}
	if err != nil {
		return "", err
	}
	return entry.ComponentName, nil
}

// CreateComponent registers a new component through its anchor entry
func CreateComponent(ctx context.Context, db *gorm.DB, code, name, actor string) (*ComponentSummary, error) {
	code = NormalizeComponentCode(code)
	name = cleanText(name)
	if name == "" {
		return nil, ErrMissingFields
	}
	if !componentCodePattern.MatchString(code) {
		return nil, ErrInvalidComponentCode
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := componentExists(tx, code)
		if err != nil {
			return err
		}
		if exists {
			return ErrComponentExists
		}

		anchor := models.NewComponentAnchor(code, name)
		if err := tx.Create(&anchor).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrComponentExists
			}
			return fmt.Errorf("failed to create component: %w", err)
		}
		return RecordAudit(tx, models.AuditActionCreate, models.AuditEntityComponent, code,
			nil, ComponentSnapshot{ComponentCode: code, ComponentName: name}, actor)
	})
	if err != nil {
		return nil, err
	}
	return &ComponentSummary{ComponentCode: code, ComponentName: name}, nil
}

// renameComponent sets the display name on every entry of a component.
func renameComponent(tx *gorm.DB, code, name string) error {
	res := tx.Model(&models.Feature{}).Where("component_code = ?", code).Update("component_name", name)
	if res.Error != nil {
		return fmt.Errorf("failed to rename component: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrComponentNotFound
	}
	return nil
}

// RenameComponent changes a component's display name on all of its entries
func RenameComponent(ctx context.Context, db *gorm.DB, code, name, actor string) error {
	code = NormalizeComponentCode(code)
	name = cleanText(name)
	if name == "" {
		return ErrMissingFields
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		oldName, err := componentName(tx, code)
		if err != nil {
			return err
		}
		if err := renameComponent(tx, code, name); err != nil {
			return err
		}
		return RecordAudit(tx, models.AuditActionEdit, models.AuditEntityComponent, code,
			ComponentSnapshot{ComponentCode: code, ComponentName: oldName},
			ComponentSnapshot{ComponentCode: code, ComponentName: name},
			actor)
	})
}

// DeleteComponent removes a component with all of its groups and features
func DeleteComponent(ctx context.Context, db *gorm.DB, code, actor string) error {
	code = NormalizeComponentCode(code)

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		name, err := componentName(tx, code)
		if err != nil {
			return err
		}
		if err := tx.Where("component_code = ?", code).Delete(&models.Feature{}).Error; err != nil {
			return fmt.Errorf("failed to delete component: %w", err)
		}
		return RecordAudit(tx, models.AuditActionDelete, models.AuditEntityComponent, code,
			ComponentSnapshot{ComponentCode: code, ComponentName: name}, nil, actor)
	})
}

// ListFeatureGroups returns the feature groups of a component, or of every
// component when componentCode is empty
func ListFeatureGroups(db *gorm.DB, componentCode string) ([]FeatureGroupSummary, error) {
	query := db.Model(&models.Feature{}).
		Select("component_code, MAX(component_name) AS component_name, feature_group_code, " +
			"MAX(feature_group_name) AS feature_group_name, " + placeholderCount() + " AS feature_count").
		Where("feature_group_code <> ?", models.ReservedCode)
	if componentCode != "" {
		query = query.Where("component_code = ?", NormalizeComponentCode(componentCode))
	}

	var groups []FeatureGroupSummary
	err := query.Group("component_code, feature_group_code").
		Order("component_code, feature_group_code").
		Scan(&groups).Error
	return groups, err
}

func groupName(tx *gorm.DB, componentCode, groupCode string) (string, error) {
	var entry models.Feature
	err := tx.Select("feature_group_name").
		Where("component_code = ? AND feature_group_code = ?", componentCode, groupCode).
		Where("feature_group_code <> ?", models.ReservedCode).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrFeatureGroupNotFound
	}
	if err != nil {
		return "", err
	}
	return entry.FeatureGroupName, nil
}

func groupNameTaken(tx *gorm.DB, componentCode, name string) (bool, error) {
	var count int64
	err := tx.Model(&models.Feature{}).
		Where("component_code = ? AND feature_group_code <> ?", componentCode, models.ReservedCode).
		Where("LOWER(feature_group_name) = ?", strings.ToLower(name)).
		Count(&count).Error
	return count > 0, err
}

// withAllocationRetry runs fn until it stops failing on a uniqueness
// conflict. fn must re-read the allocation maximum on every attempt.
func withAllocationRetry(fn func() error) error {
	for i := 0; i < maxAllocationRetries; i++ {
		err := fn()
		if err == nil || !isUniqueViolation(err) {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts", ErrAllocationConflict, maxAllocationRetries)
}

// CreateFeatureGroup allocates a group code and stores a group anchor so the
// empty group is visible until features are added
func CreateFeatureGroup(ctx context.Context, db *gorm.DB, componentCode, name, actor string) (*FeatureGroupSummary, error) {
	componentCode = NormalizeComponentCode(componentCode)
	name = cleanText(name)
	if componentCode == "" || name == "" {
		return nil, ErrMissingFields
	}

	var created FeatureGroupSummary
	err := withAllocationRetry(func() error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			compName, err := componentName(tx, componentCode)
			if err != nil {
				return err
			}
			taken, err := groupNameTaken(tx, componentCode, name)
			if err != nil {
				return err
			}
			if taken {
				return ErrFeatureGroupExists
			}

			groupCode, err := NextGroupCode(ctx, tx, componentCode)
			if err != nil {
				return err
			}
			anchor := models.NewGroupAnchor(componentCode, compName, groupCode, name)
			if err := tx.Create(&anchor).Error; err != nil {
				return err
			}

			created = FeatureGroupSummary{
				ComponentCode:    componentCode,
				ComponentName:    compName,
				FeatureGroupCode: groupCode,
				FeatureGroupName: name,
			}
			return RecordAudit(tx, models.AuditActionCreate, models.AuditEntityFeatureGroup, anchor.UniqueID, nil,
				FeatureGroupSnapshot{ComponentCode: componentCode, FeatureGroupCode: groupCode, FeatureGroupName: name},
				actor)
		})
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// RenameFeatureGroup changes a group's display name on all of its entries
func RenameFeatureGroup(ctx context.Context, db *gorm.DB, componentCode, groupCode, name, actor string) error {
	componentCode = NormalizeComponentCode(componentCode)
	name = cleanText(name)
	if name == "" {
		return ErrMissingFields
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		oldName, err := groupName(tx, componentCode, groupCode)
		if err != nil {
			return err
		}
		if !strings.EqualFold(oldName, name) {
			taken, err := groupNameTaken(tx, componentCode, name)
			if err != nil {
				return err
			}
			if taken {
				return ErrFeatureGroupExists
			}
		}

		if err := tx.Model(&models.Feature{}).
			Where("component_code = ? AND feature_group_code = ?", componentCode, groupCode).
			Update("feature_group_name", name).Error; err != nil {
			return fmt.Errorf("failed to rename feature group: %w", err)
		}

		return RecordAudit(tx, models.AuditActionEdit, models.AuditEntityFeatureGroup,
			models.BuildUniqueID(componentCode, groupCode, models.GroupAnchorFeatureID),
			FeatureGroupSnapshot{ComponentCode: componentCode, FeatureGroupCode: groupCode, FeatureGroupName: oldName},
			FeatureGroupSnapshot{ComponentCode: componentCode, FeatureGroupCode: groupCode, FeatureGroupName: name},
			actor)
	})
}

// DeleteFeatureGroup removes a group with its anchor and features
func DeleteFeatureGroup(ctx context.Context, db *gorm.DB, componentCode, groupCode, actor string) error {
	componentCode = NormalizeComponentCode(componentCode)

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entries []models.Feature
		if err := tx.Where("component_code = ? AND feature_group_code = ?", componentCode, groupCode).
			Where("feature_group_code <> ?", models.ReservedCode).
			Order("feature_id").
			Find(&entries).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return ErrFeatureGroupNotFound
		}

		if err := tx.Where("component_code = ? AND feature_group_code = ?", componentCode, groupCode).
			Delete(&models.Feature{}).Error; err != nil {
			return fmt.Errorf("failed to delete feature group: %w", err)
		}

		return RecordAudit(tx, models.AuditActionDelete, models.AuditEntityFeatureGroup,
			models.BuildUniqueID(componentCode, groupCode, models.GroupAnchorFeatureID),
			entries, nil, actor)
	})
}

// FeatureFilters narrows feature listings
type FeatureFilters struct {
	Query         string
	ComponentCode string
	Role          string
	ServiceType   string
}

// ListFeatures returns real features ordered by their position in the catalogue
func ListFeatures(db *gorm.DB, filters FeatureFilters, page, pageSize int) ([]models.Feature, int64, error) {
	query := db.Model(&models.Feature{}).Scopes(models.RealFeatures)

	if filters.ComponentCode != "" {
		query = query.Where("component_code = ?", NormalizeComponentCode(filters.ComponentCode))
	}
	if filters.Role != "" {
		query = query.Where("as_a LIKE ?", "%"+filters.Role+"%")
	}
	if filters.ServiceType != "" {
		query = query.Where("service_type = ?", filters.ServiceType)
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		pattern := "%" + q + "%"
		query = query.Where(
			"feature_name LIKE ? OR description LIKE ? OR unique_id LIKE ? OR feature_group_name LIKE ? OR component_name LIKE ?",
			pattern, pattern, pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("component_code, feature_group_code, feature_id")
	if pageSize > 0 {
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}

	var features []models.Feature
	err := query.Find(&features).Error
	return features, total, err
}

// GetFeature fetches a real feature by unique id
func GetFeature(db *gorm.DB, uniqueID string) (*models.Feature, error) {
	var feature models.Feature
	err := db.Scopes(models.RealFeatures).First(&feature, "unique_id = ?", uniqueID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFeatureNotFound
	}
	if err != nil {
		return nil, err
	}
	return &feature, nil
}

// Group modes accepted when creating a feature
const (
	GroupModeNew      = "new"
	GroupModeExisting = "existing"
)

// FeatureInput is the data needed to create a feature
type FeatureInput struct {
	ComponentCode    string `json:"component_code" form:"component_code"`
	GroupMode        string `json:"group_mode" form:"group_mode"`
	FeatureGroupCode string `json:"feature_group_code" form:"feature_group_code"`
	NewGroupName     string `json:"new_group_name" form:"new_group_name"`
	FeatureFields
}

func (f FeatureFields) clean() FeatureFields {
	out := FeatureFields{
		FeatureName:      cleanText(f.FeatureName),
		Description:      cleanText(f.Description),
		AsA:              cleanText(f.AsA),
		IWant:            cleanText(f.IWant),
		ExpectedOutcomes: cleanText(f.ExpectedOutcomes),
		ServiceType:      cleanText(f.ServiceType),
	}
	if out.ServiceType == "" {
		out.ServiceType = models.DefaultServiceType
	}
	return out
}

func (f FeatureFields) complete() bool {
	return f.FeatureName != "" && f.Description != "" && f.AsA != ""
}

// CreateFeature adds a feature to an existing group or to a new group created
// on the fly
func CreateFeature(ctx context.Context, db *gorm.DB, input FeatureInput, actor string) (*models.Feature, error) {
	input.ComponentCode = NormalizeComponentCode(input.ComponentCode)
	fields := input.FeatureFields.clean()
	if input.ComponentCode == "" || !fields.complete() {
		return nil, ErrMissingFields
	}

	var created models.Feature
	err := withAllocationRetry(func() error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			compName, err := componentName(tx, input.ComponentCode)
			if err != nil {
				return err
			}

			var groupCode, groupLabel, featureID string
			switch input.GroupMode {
			case GroupModeNew:
				groupLabel = cleanText(input.NewGroupName)
				if groupLabel == "" {
					return ErrMissingFields
				}
				taken, err := groupNameTaken(tx, input.ComponentCode, groupLabel)
				if err != nil {
					return err
				}
				if taken {
					return ErrFeatureGroupExists
				}
				if groupCode, err = NextGroupCode(ctx, tx, input.ComponentCode); err != nil {
					return err
				}
				featureID = formatCode(1)
			case GroupModeExisting:
				groupCode = strings.TrimSpace(input.FeatureGroupCode)
				if groupLabel, err = groupName(tx, input.ComponentCode, groupCode); err != nil {
					return err
				}
				if featureID, err = NextFeatureID(ctx, tx, input.ComponentCode, groupCode); err != nil {
					return err
				}
			default:
				return ErrInvalidGroupMode
			}

			created = models.Feature{
				UniqueID:         models.BuildUniqueID(input.ComponentCode, groupCode, featureID),
				ComponentCode:    input.ComponentCode,
				ComponentName:    compName,
				FeatureGroupCode: groupCode,
				FeatureGroupName: groupLabel,
				FeatureID:        featureID,
				FeatureName:      fields.FeatureName,
				Description:      fields.Description,
				AsA:              fields.AsA,
				IWant:            fields.IWant,
				ExpectedOutcomes: fields.ExpectedOutcomes,
				ServiceType:      fields.ServiceType,
			}
			if err := tx.Create(&created).Error; err != nil {
				return err
			}
			return RecordAudit(tx, models.AuditActionCreate, models.AuditEntityFeature, created.UniqueID, nil, created, actor)
		})
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func applyFeatureFields(tx *gorm.DB, uniqueID string, fields FeatureFields) error {
	res := tx.Model(&models.Feature{}).
		Scopes(models.RealFeatures).
		Where("unique_id = ?", uniqueID).
		Updates(map[string]interface{}{
			"feature_name":      fields.FeatureName,
			"description":       fields.Description,
			"as_a":              fields.AsA,
			"i_want":            fields.IWant,
			"expected_outcomes": fields.ExpectedOutcomes,
			"service_type":      fields.ServiceType,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update feature: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrFeatureNotFound
	}
	return nil
}

// UpdateFeature edits the descriptive fields of a feature. Identifiers and the
// component and group a feature belongs to never change.
func UpdateFeature(ctx context.Context, db *gorm.DB, uniqueID string, fields FeatureFields, actor string) (*models.Feature, error) {
	fields = fields.clean()
	if !fields.complete() {
		return nil, ErrMissingFields
	}

	var updated *models.Feature
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := GetFeature(tx, uniqueID)
		if err != nil {
			return err
		}
		old := fieldsOf(current)
		if err := applyFeatureFields(tx, uniqueID, fields); err != nil {
			return err
		}
		if updated, err = GetFeature(tx, uniqueID); err != nil {
			return err
		}
		return RecordAudit(tx, models.AuditActionEdit, models.AuditEntityFeature, uniqueID, old, fields, actor)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteFeature removes a feature, keeping its full state in the audit entry
func DeleteFeature(ctx context.Context, db *gorm.DB, uniqueID, actor string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := GetFeature(tx, uniqueID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.Feature{}, "unique_id = ?", uniqueID).Error; err != nil {
			return fmt.Errorf("failed to delete feature: %w", err)
		}
		return RecordAudit(tx, models.AuditActionDelete, models.AuditEntityFeature, uniqueID, current, nil, actor)
	})
}

// GetCatalogueStats counts components, groups, real features and assessments
func GetCatalogueStats(db *gorm.DB) (*CatalogueStats, error) {
	stats := &CatalogueStats{}

	if err := db.Model(&models.Feature{}).Distinct("component_code").Count(&stats.Components).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Feature{}).Scopes(models.RealFeatures).
		Select("COUNT(DISTINCT component_code || '-' || feature_group_code)").
		Scan(&stats.FeatureGroups).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Feature{}).Scopes(models.RealFeatures).Count(&stats.Features).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Assessment{}).Count(&stats.Assessments).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
