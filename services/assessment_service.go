package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"feature_catalogue_app_go/models"

	"gorm.io/gorm"
)

const (
	assessmentCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	assessmentCodeLength   = 6
	// NotAnswered is shown for features without a response
	NotAnswered = "Not answered"
)

var (
	ErrAssessmentNotFound    = errors.New("assessment not found")
	ErrAssessmentReadOnly    = errors.New("legacy assessments are read-only")
	ErrInvalidResponse       = errors.New("response must be yes, no or maybe")
	ErrFeatureNotInComponent = errors.New("feature does not belong to this component")
)

// AssessmentInput holds the fields needed to start an assessment
type AssessmentInput struct {
	UserName    string `json:"user_name" form:"user_name"`
	ServiceName string `json:"service_name" form:"service_name"`
	ServiceType string `json:"service_type" form:"service_type"`
}

// GenerateAssessmentCode returns a random resume code. The alphabet leaves
// out characters that are easy to misread.
func GenerateAssessmentCode() (string, error) {
	var sb strings.Builder
	limit := big.NewInt(int64(len(assessmentCodeAlphabet)))
	for i := 0; i < assessmentCodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		sb.WriteByte(assessmentCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// ensureUniqueAssessmentCode generates codes until one is unused
func ensureUniqueAssessmentCode(db *gorm.DB) (string, error) {
	const maxRetries = 10

	for i := 0; i < maxRetries; i++ {
		code, err := GenerateAssessmentCode()
		if err != nil {
			return "", err
		}

		var count int64
		if err := db.Model(&models.Assessment{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check assessment code uniqueness: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique assessment code after %d retries", maxRetries)
}

// StartAssessment creates an assessment against the current catalogue
func StartAssessment(ctx context.Context, db *gorm.DB, input AssessmentInput) (*models.Assessment, error) {
	input.UserName = cleanText(input.UserName)
	input.ServiceName = cleanText(input.ServiceName)
	input.ServiceType = cleanText(input.ServiceType)
	if input.UserName == "" || input.ServiceName == "" || input.ServiceType == "" {
		return nil, ErrMissingFields
	}

	db = db.WithContext(ctx)
	code, err := ensureUniqueAssessmentCode(db)
	if err != nil {
		return nil, err
	}

	assessment := &models.Assessment{
		Code:        code,
		UserName:    input.UserName,
		ServiceName: input.ServiceName,
		ServiceType: input.ServiceType,
	}
	if err := db.Create(assessment).Error; err != nil {
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}
	return assessment, nil
}

// GetAssessment fetches an assessment by id
func GetAssessment(db *gorm.DB, id string) (*models.Assessment, error) {
	var assessment models.Assessment
	err := db.First(&assessment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAssessmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

// FindAssessmentByCode resumes an assessment from its code
func FindAssessmentByCode(db *gorm.DB, code string) (*models.Assessment, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrMissingFields
	}
	var assessment models.Assessment
	err := db.First(&assessment, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAssessmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

// assessableComponents lists the components that have real features, in
// walkthrough order
func assessableComponents(db *gorm.DB) ([]ComponentSummary, error) {
	all, err := ListComponents(db)
	if err != nil {
		return nil, err
	}
	var out []ComponentSummary
	for _, c := range all {
		if c.FeatureCount > 0 {
			out = append(out, c)
		}
	}
	return out, nil
}

// Walkthrough is one component's step of an assessment
type Walkthrough struct {
	Assessment      *models.Assessment   `json:"assessment"`
	Component       ComponentSummary     `json:"component"`
	Description     ComponentDescription `json:"description"`
	Features        []models.Feature     `json:"features"`
	Responses       map[string]string    `json:"responses"`
	ComponentNumber int                  `json:"component_number"`
	TotalComponents int                  `json:"total_components"`
	PrevCode        string               `json:"prev_code,omitempty"`
	NextCode        string               `json:"next_code,omitempty"`
}

// FirstComponentCode returns where a new assessment starts
func FirstComponentCode(db *gorm.DB) (string, error) {
	components, err := assessableComponents(db)
	if err != nil {
		return "", err
	}
	if len(components) == 0 {
		return "", ErrComponentNotFound
	}
	return components[0].ComponentCode, nil
}

// GetWalkthrough loads the features and saved answers of one component
func GetWalkthrough(db *gorm.DB, assessmentID, componentCode string) (*Walkthrough, error) {
	assessment, err := GetAssessment(db, assessmentID)
	if err != nil {
		return nil, err
	}
	componentCode = NormalizeComponentCode(componentCode)

	components, err := assessableComponents(db)
	if err != nil {
		return nil, err
	}
	index := -1
	for i, c := range components {
		if c.ComponentCode == componentCode {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, ErrComponentNotFound
	}

	w := &Walkthrough{
		Assessment:      assessment,
		Component:       components[index],
		Description:     DescribeComponent(componentCode),
		Responses:       make(map[string]string),
		ComponentNumber: index + 1,
		TotalComponents: len(components),
	}
	if index > 0 {
		w.PrevCode = components[index-1].ComponentCode
	}
	if index < len(components)-1 {
		w.NextCode = components[index+1].ComponentCode
	}

	if err := db.Scopes(models.RealFeatures).
		Where("component_code = ?", componentCode).
		Order("feature_group_code, feature_id").
		Find(&w.Features).Error; err != nil {
		return nil, err
	}

	var responses []models.AssessmentResponse
	if err := db.Where("assessment_id = ? AND component_code = ?", assessmentID, componentCode).
		Find(&responses).Error; err != nil {
		return nil, err
	}
	for _, r := range responses {
		w.Responses[r.FeatureID] = r.Response
	}
	return w, nil
}

// SaveComponentResponses replaces every answer an assessment holds for one
// component with responses (feature unique id to answer).
func SaveComponentResponses(ctx context.Context, db *gorm.DB, assessmentID, componentCode string, responses map[string]string) error {
	componentCode = NormalizeComponentCode(componentCode)
	for _, value := range responses {
		if !models.IsValidResponse(value) {
			return ErrInvalidResponse
		}
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assessment, err := GetAssessment(tx, assessmentID)
		if err != nil {
			return err
		}
		if assessment.Legacy {
			return ErrAssessmentReadOnly
		}

		var ids []string
		if err := tx.Model(&models.Feature{}).Scopes(models.RealFeatures).
			Where("component_code = ?", componentCode).
			Pluck("unique_id", &ids).Error; err != nil {
			return err
		}
		known := make(map[string]bool, len(ids))
		for _, id := range ids {
			known[id] = true
		}

		rows := make([]models.AssessmentResponse, 0, len(responses))
		for featureID, value := range responses {
			if !known[featureID] {
				return fmt.Errorf("%w: %s", ErrFeatureNotInComponent, featureID)
			}
			rows = append(rows, models.AssessmentResponse{
				AssessmentID:  assessmentID,
				ComponentCode: componentCode,
				FeatureID:     featureID,
				Response:      value,
			})
		}

		if err := tx.Where("assessment_id = ? AND component_code = ?", assessmentID, componentCode).
			Delete(&models.AssessmentResponse{}).Error; err != nil {
			return err
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to save responses: %w", err)
			}
		}
		return tx.Model(assessment).Update("updated_at", time.Now()).Error
	})
}

// ComponentResponseStats counts the answers given for one component
type ComponentResponseStats struct {
	ComponentCode string `json:"code"`
	ComponentName string `json:"name"`
	Yes           int64  `json:"yes"`
	No            int64  `json:"no"`
	Maybe         int64  `json:"maybe"`
}

// AssessmentSummary is the progress overview of an assessment
type AssessmentSummary struct {
	Assessment     *models.Assessment       `json:"assessment"`
	ComponentStats []ComponentResponseStats `json:"component_stats"`
	NotAssessed    []ComponentSummary       `json:"not_assessed"`
}

// GetAssessmentSummary counts answers per component and lists the components
// that have no answers yet
func GetAssessmentSummary(db *gorm.DB, assessmentID string) (*AssessmentSummary, error) {
	assessment, err := GetAssessment(db, assessmentID)
	if err != nil {
		return nil, err
	}

	type row struct {
		ComponentCode string
		ComponentName string
		Response      string
		Count         int64
	}
	var rows []row
	err = db.Table("assessment_responses AS ar").
		Select("ar.component_code, f.component_name, ar.response, COUNT(*) AS count").
		Joins("JOIN features f ON ar.component_code = f.component_code AND ar.feature_id = f.unique_id").
		Where("ar.assessment_id = ?", assessmentID).
		Group("ar.component_code, f.component_name, ar.response").
		Order("ar.component_code").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summary := &AssessmentSummary{Assessment: assessment}
	index := make(map[string]int)
	for _, r := range rows {
		i, ok := index[r.ComponentCode]
		if !ok {
			i = len(summary.ComponentStats)
			index[r.ComponentCode] = i
			summary.ComponentStats = append(summary.ComponentStats, ComponentResponseStats{
				ComponentCode: r.ComponentCode,
				ComponentName: r.ComponentName,
			})
		}
		switch r.Response {
		case models.ResponseYes:
			summary.ComponentStats[i].Yes = r.Count
		case models.ResponseNo:
			summary.ComponentStats[i].No = r.Count
		case models.ResponseMaybe:
			summary.ComponentStats[i].Maybe = r.Count
		}
	}

	components, err := assessableComponents(db)
	if err != nil {
		return nil, err
	}
	for _, c := range components {
		if _, ok := index[c.ComponentCode]; !ok {
			summary.NotAssessed = append(summary.NotAssessed, c)
		}
	}
	return summary, nil
}

// ReportFeature is a feature with the answer given for it
type ReportFeature struct {
	UniqueID         string `json:"id"`
	FeatureName      string `json:"name"`
	Description      string `json:"description"`
	AsA              string `json:"as_a"`
	IWant            string `json:"i_want"`
	ExpectedOutcomes string `json:"expected_outcomes"`
	Response         string `json:"response"`
}

// ReportComponent groups report features by component
type ReportComponent struct {
	ComponentCode string          `json:"code"`
	ComponentName string          `json:"name"`
	Features      []ReportFeature `json:"features"`
}

// GetAssessmentReport lists every current feature with its answer
func GetAssessmentReport(db *gorm.DB, assessmentID string) (*models.Assessment, []ReportComponent, error) {
	assessment, err := GetAssessment(db, assessmentID)
	if err != nil {
		return nil, nil, err
	}

	var features []models.Feature
	if err := db.Scopes(models.RealFeatures).
		Order("component_code, feature_group_code, feature_id").
		Find(&features).Error; err != nil {
		return nil, nil, err
	}
	answers, err := responseMap(db, assessmentID)
	if err != nil {
		return nil, nil, err
	}

	return assessment, groupReport(features, answers), nil
}

func responseMap(db *gorm.DB, assessmentID string) (map[string]string, error) {
	var responses []models.AssessmentResponse
	if err := db.Where("assessment_id = ?", assessmentID).Find(&responses).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(responses))
	for _, r := range responses {
		out[r.FeatureID] = r.Response
	}
	return out, nil
}

// groupReport attaches answers to features already ordered by component
func groupReport(features []models.Feature, answers map[string]string) []ReportComponent {
	var components []ReportComponent
	for _, f := range features {
		if len(components) == 0 || components[len(components)-1].ComponentCode != f.ComponentCode {
			components = append(components, ReportComponent{ComponentCode: f.ComponentCode, ComponentName: f.ComponentName})
		}
		response := answers[f.UniqueID]
		if response == "" {
			response = NotAnswered
		}
		current := &components[len(components)-1]
		current.Features = append(current.Features, ReportFeature{
			UniqueID:         f.UniqueID,
			FeatureName:      f.FeatureName,
			Description:      f.Description,
			AsA:              f.AsA,
			IWant:            f.IWant,
			ExpectedOutcomes: f.ExpectedOutcomes,
			Response:         response,
		})
	}
	return components
}

// ExportAssessment writes the report as a workbook and suggests a file name
func ExportAssessment(db *gorm.DB, assessmentID string) (*bytes.Buffer, string, error) {
	assessment, components, err := GetAssessmentReport(db, assessmentID)
	if err != nil {
		return nil, "", err
	}

	headers := []string{"Component Code", "Component Name", "Feature ID", "Feature Name", "Description", "Response"}
	var rows [][]interface{}
	for _, c := range components {
		for _, f := range c.Features {
			rows = append(rows, []interface{}{c.ComponentCode, c.ComponentName, f.UniqueID, f.FeatureName, f.Description, f.Response})
		}
	}

	buf, err := WriteSheet("Assessment", headers, rows)
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("assessment-%s-%d.xlsx", assessment.Code, time.Now().Unix())
	return buf, filename, nil
}

// AssessmentOverview is an assessment with its completion percentage
type AssessmentOverview struct {
	models.Assessment
	ResponsesCount  int64 `json:"responses_count"`
	PercentComplete int   `json:"percent_complete"`
}

// ListAssessments returns every assessment, most recently updated first
func ListAssessments(db *gorm.DB) ([]AssessmentOverview, int64, error) {
	var assessments []models.Assessment
	if err := db.Order("updated_at DESC").Find(&assessments).Error; err != nil {
		return nil, 0, err
	}

	type countRow struct {
		AssessmentID string
		Count        int64
	}
	var counts []countRow
	if err := db.Model(&models.AssessmentResponse{}).
		Select("assessment_id, COUNT(DISTINCT feature_id) AS count").
		Group("assessment_id").
		Scan(&counts).Error; err != nil {
		return nil, 0, err
	}
	byID := make(map[string]int64, len(counts))
	for _, c := range counts {
		byID[c.AssessmentID] = c.Count
	}

	var totalFeatures int64
	if err := db.Model(&models.Feature{}).Scopes(models.RealFeatures).Count(&totalFeatures).Error; err != nil {
		return nil, 0, err
	}

	out := make([]AssessmentOverview, 0, len(assessments))
	for _, a := range assessments {
		o := AssessmentOverview{Assessment: a, ResponsesCount: byID[a.ID]}
		if totalFeatures > 0 {
			o.PercentComplete = int((o.ResponsesCount*100 + totalFeatures/2) / totalFeatures)
		}
		out = append(out, o)
	}
	return out, totalFeatures, nil
}

// DeleteAssessment removes an assessment and its responses
func DeleteAssessment(ctx context.Context, db *gorm.DB, assessmentID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := GetAssessment(tx, assessmentID); err != nil {
			return err
		}
		if err := tx.Where("assessment_id = ?", assessmentID).Delete(&models.AssessmentResponse{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Assessment{}, "id = ?", assessmentID).Error
	})
}

// CompareFeatures loads up to maxCompare distinct features for side by side
// display. Unknown ids are reported through the missing count.
func CompareFeatures(db *gorm.DB, ids []string) ([]models.Feature, int, error) {
	const maxCompare = 5

	seen := make(map[string]bool)
	var unique []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" && !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) > maxCompare {
		unique = unique[:maxCompare]
	}
	if len(unique) == 0 {
		return nil, 0, nil
	}

	var features []models.Feature
	if err := db.Scopes(models.RealFeatures).
		Where("unique_id IN ?", unique).
		Order("component_code, feature_group_code, feature_id").
		Find(&features).Error; err != nil {
		return nil, 0, err
	}
	return features, len(unique) - len(features), nil
}
