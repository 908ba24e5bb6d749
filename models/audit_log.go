package models

import (
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrImmutable is returned by hooks on append-only tables
var ErrImmutable = errors.New("record is immutable")

// AuditAction represents the type of operation performed
type AuditAction string

const (
	AuditActionCreate            AuditAction = "create"
	AuditActionEdit              AuditAction = "edit"
	AuditActionDelete            AuditAction = "delete"
	AuditActionBulkUpload        AuditAction = "bulk-upload"
	AuditActionReplaceFeatureSet AuditAction = "replace-feature-set"
)

// AuditEntity names the kind of catalogue element an entry is about
type AuditEntity string

const (
	AuditEntityComponent    AuditEntity = "component"
	AuditEntityFeatureGroup AuditEntity = "feature_group"
	AuditEntityFeature      AuditEntity = "feature"
	AuditEntityFeatures     AuditEntity = "features"
)

// AuditLog is an append-only record of a structural catalogue mutation
type AuditLog struct {
	ID         string         `gorm:"type:uuid;primarykey" json:"id"`
	ActionType AuditAction    `gorm:"not null;index:idx_audit_action" json:"action_type"`
	EntityType AuditEntity    `gorm:"not null;index:idx_audit_entity,priority:1" json:"entity_type"`
	EntityID   *string        `gorm:"index:idx_audit_entity,priority:2" json:"entity_id,omitempty"`
	OldData    datatypes.JSON `json:"old_data,omitempty"`
	NewData    datatypes.JSON `json:"new_data,omitempty"`
	Username   string         `gorm:"not null" json:"username"`
	Timestamp  time.Time      `gorm:"autoCreateTime;index:idx_audit_timestamp" json:"timestamp"`
}

// AuditChange represents a single field change
type AuditChange struct {
	Field string      `json:"field"`
	Old   interface{} `json:"old"`
	New   interface{} `json:"new"`
}

// Changes diffs the old and new snapshots field by field. Snapshots that are
// not JSON objects produce no changes.
func (a *AuditLog) Changes() []AuditChange {
	var changes []AuditChange
	oldMap := make(map[string]interface{})
	newMap := make(map[string]interface{})

	if len(a.OldData) > 0 {
		_ = json.Unmarshal(a.OldData, &oldMap)
	}
	if len(a.NewData) > 0 {
		_ = json.Unmarshal(a.NewData, &newMap)
	}

	keys := make(map[string]struct{})
	for k := range oldMap {
		keys[k] = struct{}{}
	}
	for k := range newMap {
		keys[k] = struct{}{}
	}

	for k := range keys {
		o := oldMap[k]
		n := newMap[k]
		if !reflect.DeepEqual(o, n) {
			changes = append(changes, AuditChange{Field: k, Old: o, New: n})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	return changes
}

// BeforeCreate generates UUID
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutable
}

func (a *AuditLog) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutable
}

// TableName specifies the table name
func (AuditLog) TableName() string {
	return "audit_logs"
}
