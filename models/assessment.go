package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Response values accepted for a feature in an assessment
const (
	ResponseYes   = "yes"
	ResponseNo    = "no"
	ResponseMaybe = "maybe"
)

// IsValidResponse checks the response against the accepted values
func IsValidResponse(value string) bool {
	switch value {
	case ResponseYes, ResponseNo, ResponseMaybe:
		return true
	}
	return false
}

// Assessment is a user's walk through the catalogue for one service. Once a
// catalogue generation is superseded the assessment is marked legacy and keeps
// a link to the snapshot it was answered against.
type Assessment struct {
	ID                 string    `gorm:"type:uuid;primarykey" json:"id"`
	Code               string    `gorm:"uniqueIndex;not null;size:6" json:"code"`
	UserName           string    `gorm:"not null" json:"user_name"`
	ServiceName        string    `gorm:"not null" json:"service_name"`
	ServiceType        string    `json:"service_type"`
	Legacy             bool      `gorm:"not null;default:false;index" json:"legacy"`
	LegacyFeatureSetID *string   `gorm:"type:uuid;index" json:"legacy_feature_set_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	Responses        []AssessmentResponse `gorm:"foreignKey:AssessmentID" json:"responses,omitempty"`
	LegacyFeatureSet *LegacyFeatureSet    `gorm:"foreignKey:LegacyFeatureSetID" json:"-"`
}

// BeforeCreate hook to generate UUID
func (a *Assessment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Assessment) TableName() string {
	return "assessments"
}

// AssessmentResponse records the answer given for one feature. FeatureID holds
// the feature's unique id.
type AssessmentResponse struct {
	ID            string    `gorm:"type:uuid;primarykey" json:"id"`
	AssessmentID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_response_feature,priority:1" json:"assessment_id"`
	ComponentCode string    `gorm:"not null;index" json:"component_code"`
	FeatureID     string    `gorm:"not null;uniqueIndex:idx_response_feature,priority:2" json:"feature_id"`
	Response      string    `gorm:"not null" json:"response"`
	CreatedAt     time.Time `json:"created_at"`
}

// BeforeCreate hook to generate UUID
func (r *AssessmentResponse) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (AssessmentResponse) TableName() string {
	return "assessment_responses"
}
