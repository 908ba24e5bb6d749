package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	// PlaceholderName marks a row that only anchors a component or a feature group.
	PlaceholderName = "_PLACEHOLDER_"

	// ReservedCode is never allocated; component anchors use it for group and feature.
	ReservedCode = "999"

	// GroupAnchorFeatureID is the feature id carried by feature group anchors.
	GroupAnchorFeatureID = "000"

	// DefaultServiceType applies when a row leaves the service type blank.
	DefaultServiceType = "Cross-cutting"
)

// EntryKind distinguishes real features from the anchor rows that keep an
// otherwise empty component or feature group alive.
type EntryKind int

const (
	KindFeature EntryKind = iota
	KindComponentAnchor
	KindGroupAnchor
)

func (k EntryKind) String() string {
	switch k {
	case KindComponentAnchor:
		return "component_anchor"
	case KindGroupAnchor:
		return "group_anchor"
	default:
		return "feature"
	}
}

// Feature is a single catalogue entry. Components and feature groups have no
// table of their own; they exist through the entries that reference them.
type Feature struct {
	UniqueID         string    `gorm:"primaryKey;column:unique_id" json:"unique_id"`
	ComponentCode    string    `gorm:"not null;uniqueIndex:idx_feature_position,priority:1;index:idx_feature_component" json:"component_code"`
	ComponentName    string    `gorm:"not null" json:"component_name"`
	FeatureGroupCode string    `gorm:"not null;uniqueIndex:idx_feature_position,priority:2" json:"feature_group_code"`
	FeatureGroupName string    `gorm:"not null" json:"feature_group_name"`
	FeatureID        string    `gorm:"not null;uniqueIndex:idx_feature_position,priority:3" json:"feature_id"`
	FeatureName      string    `gorm:"not null" json:"feature_name"`
	Description      string    `gorm:"type:text" json:"description"`
	AsA              string    `json:"as_a"`
	IWant            string    `gorm:"type:text" json:"i_want"`
	ExpectedOutcomes string    `gorm:"type:text" json:"expected_outcomes"`
	ServiceType      string    `json:"service_type"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Feature) TableName() string {
	return "features"
}

// Kind derives the entry variant from the stored sentinel values.
func (f *Feature) Kind() EntryKind {
	if f.FeatureName != PlaceholderName {
		return KindFeature
	}
	if f.FeatureGroupCode == ReservedCode && f.FeatureID == ReservedCode {
		return KindComponentAnchor
	}
	return KindGroupAnchor
}

// IsPlaceholder reports whether the entry is an anchor of either kind.
func (f *Feature) IsPlaceholder() bool {
	return f.FeatureName == PlaceholderName
}

// BuildUniqueID composes the hierarchical identifier of a feature.
func BuildUniqueID(componentCode, groupCode, featureID string) string {
	return fmt.Sprintf("%s-%s-%s", componentCode, groupCode, featureID)
}

// NewComponentAnchor returns the row that keeps a component without features visible.
func NewComponentAnchor(code, name string) Feature {
	return Feature{
		UniqueID:         code + "-PLACEHOLDER",
		ComponentCode:    code,
		ComponentName:    name,
		FeatureGroupCode: ReservedCode,
		FeatureID:        ReservedCode,
		FeatureName:      PlaceholderName,
		Description:      "Placeholder for component structure",
		AsA:              "System",
		IWant:            "maintain component structure",
		ExpectedOutcomes: "the component exists in the database",
		ServiceType:      DefaultServiceType,
	}
}

// NewGroupAnchor returns the row that keeps a feature group without features visible.
func NewGroupAnchor(componentCode, componentName, groupCode, groupName string) Feature {
	return Feature{
		UniqueID:         BuildUniqueID(componentCode, groupCode, GroupAnchorFeatureID),
		ComponentCode:    componentCode,
		ComponentName:    componentName,
		FeatureGroupCode: groupCode,
		FeatureGroupName: groupName,
		FeatureID:        GroupAnchorFeatureID,
		FeatureName:      PlaceholderName,
	}
}

// RealFeatures is a query scope that filters out anchor rows.
func RealFeatures(db *gorm.DB) *gorm.DB {
	return db.Where("feature_name <> ?", PlaceholderName)
}
