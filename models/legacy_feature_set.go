package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LegacyFeatureSet is the frozen copy of a superseded catalogue generation.
type LegacyFeatureSet struct {
	ID           string         `gorm:"type:uuid;primarykey" json:"id"`
	Name         string         `gorm:"not null" json:"name"`
	FeaturesJSON datatypes.JSON `gorm:"not null" json:"-"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
}

// BeforeCreate generates the UUID
func (s *LegacyFeatureSet) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate keeps snapshots immutable
func (s *LegacyFeatureSet) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutable
}

// BeforeDelete keeps snapshots immutable
func (s *LegacyFeatureSet) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutable
}

// TableName specifies the table name
func (LegacyFeatureSet) TableName() string {
	return "legacy_feature_sets"
}

// Features decodes the archived entries.
func (s *LegacyFeatureSet) Features() ([]Feature, error) {
	var features []Feature
	if len(s.FeaturesJSON) == 0 {
		return features, nil
	}
	if err := json.Unmarshal(s.FeaturesJSON, &features); err != nil {
		return nil, err
	}
	return features, nil
}
