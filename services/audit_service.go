package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"feature_catalogue_app_go/logger"
	"feature_catalogue_app_go/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrAuditEntryNotFound = errors.New("audit log entry not found")
	ErrRevertNotSupported = errors.New("revert is not supported for this entry")
)

// ComponentSnapshot is the audited state of a component
type ComponentSnapshot struct {
	ComponentCode string `json:"component_code"`
	ComponentName string `json:"component_name"`
}

// FeatureGroupSnapshot is the audited state of a feature group
type FeatureGroupSnapshot struct {
	ComponentCode    string `json:"component_code"`
	FeatureGroupCode string `json:"feature_group_code"`
	FeatureGroupName string `json:"feature_group_name"`
}

// FeatureFields are the editable fields of a feature
type FeatureFields struct {
	FeatureName      string `json:"feature_name" form:"feature_name"`
	Description      string `json:"description" form:"description"`
	AsA              string `json:"as_a" form:"as_a"`
	IWant            string `json:"i_want" form:"i_want"`
	ExpectedOutcomes string `json:"expected_outcomes" form:"expected_outcomes"`
	ServiceType      string `json:"service_type" form:"service_type"`
}

func fieldsOf(f *models.Feature) FeatureFields {
	return FeatureFields{
		FeatureName:      f.FeatureName,
		Description:      f.Description,
		AsA:              f.AsA,
		IWant:            f.IWant,
		ExpectedOutcomes: f.ExpectedOutcomes,
		ServiceType:      f.ServiceType,
	}
}

func toJSON(value interface{}) (datatypes.JSON, error) {
	if value == nil {
		return nil, nil
	}
	if raw, ok := value.(datatypes.JSON); ok {
		return raw, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// RecordAudit appends an audit entry. Callers pass the transaction that
// carries the mutation so the entry and the change commit together.
func RecordAudit(
	tx *gorm.DB,
	action models.AuditAction,
	entity models.AuditEntity,
	entityID string,
	oldData interface{},
	newData interface{},
	actor string,
) error {
	oldJSON, err := toJSON(oldData)
	if err != nil {
		return fmt.Errorf("failed to encode old audit data: %w", err)
	}
	newJSON, err := toJSON(newData)
	if err != nil {
		return fmt.Errorf("failed to encode new audit data: %w", err)
	}

	entry := models.AuditLog{
		ActionType: action,
		EntityType: entity,
		EntityID:   ptrIfNotEmpty(entityID),
		OldData:    oldJSON,
		NewData:    newJSON,
		Username:   actor,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// ptrIfNotEmpty returns a pointer to the string if not empty, nil otherwise
func ptrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// AuditLogFilters contains filter options for audit log queries
type AuditLogFilters struct {
	ActionType string
	EntityType string
	Username   string
	EntityID   string
}

// ListAuditLog returns audit entries newest first
func ListAuditLog(db *gorm.DB, filters AuditLogFilters, page, pageSize int) ([]models.AuditLog, int64, error) {
	query := db.Model(&models.AuditLog{})

	if filters.ActionType != "" {
		query = query.Where("action_type = ?", filters.ActionType)
	}
	if filters.EntityType != "" {
		query = query.Where("entity_type = ?", filters.EntityType)
	}
	if filters.Username != "" {
		query = query.Where("username = ?", filters.Username)
	}
	if filters.EntityID != "" {
		query = query.Where("entity_id = ?", filters.EntityID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	var logs []models.AuditLog
	err := query.Order("timestamp DESC").Order("rowid DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error
	return logs, total, err
}

// GetAuditEntry fetches one audit entry
func GetAuditEntry(db *gorm.DB, id string) (*models.AuditLog, error) {
	var entry models.AuditLog
	if err := db.First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuditEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func loadEntry(tx *gorm.DB, id string, action models.AuditAction) (*models.AuditLog, error) {
	var entry models.AuditLog
	err := tx.Where("id = ? AND action_type = ?", id, action).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAuditEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// RevertEdit restores the state recorded before an edit and logs the restore
// as a new edit with the snapshots swapped. Reverting that entry in turn
// re-applies the original edit.
func RevertEdit(ctx context.Context, db *gorm.DB, auditID, actor string) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := loadEntry(tx, auditID, models.AuditActionEdit)
		if err != nil {
			return err
		}

		switch entry.EntityType {
		case models.AuditEntityComponent:
			var old ComponentSnapshot
			if err := json.Unmarshal(entry.OldData, &old); err != nil {
				return fmt.Errorf("failed to decode component snapshot: %w", err)
			}
			if err := renameComponent(tx, old.ComponentCode, old.ComponentName); err != nil {
				return err
			}

		case models.AuditEntityFeature:
			var old FeatureFields
			if err := json.Unmarshal(entry.OldData, &old); err != nil {
				return fmt.Errorf("failed to decode feature snapshot: %w", err)
			}
			if entry.EntityID == nil {
				return ErrFeatureNotFound
			}
			if err := applyFeatureFields(tx, *entry.EntityID, old); err != nil {
				return err
			}

		default:
			return ErrRevertNotSupported
		}

		return RecordAudit(tx, models.AuditActionEdit, entry.EntityType, derefString(entry.EntityID),
			entry.NewData, entry.OldData, actor)
	})
	if err != nil {
		return err
	}

	logger.L().Infow("reverted edit", "audit_id", auditID, "actor", actor)
	return nil
}

// RevertDelete re-creates what a delete removed. A component comes back as an
// empty component; a feature comes back with every field it had.
func RevertDelete(ctx context.Context, db *gorm.DB, auditID, actor string) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := loadEntry(tx, auditID, models.AuditActionDelete)
		if err != nil {
			return err
		}

		switch entry.EntityType {
		case models.AuditEntityComponent:
			var old ComponentSnapshot
			if err := json.Unmarshal(entry.OldData, &old); err != nil {
				return fmt.Errorf("failed to decode component snapshot: %w", err)
			}
			exists, err := componentExists(tx, old.ComponentCode)
			if err != nil {
				return err
			}
			if exists {
				return ErrComponentExists
			}
			anchor := models.NewComponentAnchor(old.ComponentCode, old.ComponentName)
			if err := tx.Create(&anchor).Error; err != nil {
				return fmt.Errorf("failed to restore component: %w", err)
			}
			return RecordAudit(tx, models.AuditActionCreate, models.AuditEntityComponent, old.ComponentCode, nil, old, actor)

		case models.AuditEntityFeature:
			var old models.Feature
			if err := json.Unmarshal(entry.OldData, &old); err != nil {
				return fmt.Errorf("failed to decode feature snapshot: %w", err)
			}
			if err := tx.Create(&old).Error; err != nil {
				if isUniqueViolation(err) {
					return ErrFeatureExists
				}
				return fmt.Errorf("failed to restore feature: %w", err)
			}
			return RecordAudit(tx, models.AuditActionCreate, models.AuditEntityFeature, old.UniqueID, nil, old, actor)

		default:
			return ErrRevertNotSupported
		}
	})
	if err != nil {
		return err
	}

	logger.L().Infow("reverted delete", "audit_id", auditID, "actor", actor)
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
