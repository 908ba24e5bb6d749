package services

import (
	"fmt"
	"html"
	"strings"

	"feature_catalogue_app_go/models"

	"github.com/microcosm-cc/bluemonday"
)

// Column names of the tabular upload format
const (
	ColumnComponentCode    = "Component Code"
	ColumnFeatureGroupName = "Feature Group Name"
	ColumnFeatureName      = "Feature Name"
	ColumnDescription      = "Description"
	ColumnUserRoles        = "User Roles"
	ColumnIWant            = "I Want..."
	ColumnExpectedOutcomes = "Expected Outcomes"
	ColumnServiceType      = "Service Type"
)

// RequiredColumns must be present in the header of every upload.
var RequiredColumns = []string{
	ColumnComponentCode,
	ColumnFeatureGroupName,
	ColumnFeatureName,
	ColumnDescription,
	ColumnUserRoles,
}

// OptionalColumns may be omitted from an upload.
var OptionalColumns = []string{
	ColumnIWant,
	ColumnExpectedOutcomes,
	ColumnServiceType,
}

const msgMissingRequiredFields = "Missing required fields"

// Row is one data row of an upload keyed by column name.
type Row map[string]string

// RowError describes why a row was skipped. Row is the 1-based spreadsheet
// row number including the header.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// EntryDraft is a validated row that has not been given identifiers yet.
type EntryDraft struct {
	ComponentCode    string
	ComponentName    string
	FeatureGroupName string
	FeatureName      string
	Description      string
	AsA              string
	IWant            string
	ExpectedOutcomes string
	ServiceType      string
}

var textPolicy = bluemonday.StrictPolicy()

// cleanText trims a cell and strips any markup it carries.
func cleanText(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(value)))
}

// ValidateRow checks a row against the required fields and the set of known
// component codes (code to display name). It performs no lookups of its own.
func ValidateRow(row Row, knownComponents map[string]string) (*EntryDraft, *RowError) {
	code := strings.ToUpper(strings.TrimSpace(row[ColumnComponentCode]))
	groupName := cleanText(row[ColumnFeatureGroupName])
	featureName := cleanText(row[ColumnFeatureName])
	description := cleanText(row[ColumnDescription])
	asA := cleanText(row[ColumnUserRoles])

	if code == "" || groupName == "" || featureName == "" || description == "" || asA == "" {
		return nil, &RowError{Message: msgMissingRequiredFields}
	}

	componentName, ok := knownComponents[code]
	if !ok {
		return nil, &RowError{Message: fmt.Sprintf("Unknown component code: %s", code)}
	}

	serviceType := cleanText(row[ColumnServiceType])
	if serviceType == "" {
		serviceType = models.DefaultServiceType
	}

	return &EntryDraft{
		ComponentCode:    code,
		ComponentName:    componentName,
		FeatureGroupName: groupName,
		FeatureName:      featureName,
		Description:      description,
		AsA:              asA,
		IWant:            cleanText(row[ColumnIWant]),
		ExpectedOutcomes: cleanText(row[ColumnExpectedOutcomes]),
		ServiceType:      serviceType,
	}, nil
}
