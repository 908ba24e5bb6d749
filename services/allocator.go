package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"feature_catalogue_app_go/models"

	"gorm.io/gorm"
)

const (
	groupCodeStep = 10
	// identifierCeiling is the first value outside the allocatable range; it
	// equals the reserved code used by component anchors.
	identifierCeiling = 999
	// maxAllocationRetries bounds how often a single create re-allocates after
	// losing a uniqueness race.
	maxAllocationRetries = 5
)

var (
	ErrIdentifierSpaceExhausted = errors.New("identifier space exhausted")
	ErrAllocationConflict       = errors.New("could not allocate a unique identifier")
)

// formatCode zero-pads a numeric code to three digits.
func formatCode(n int) string {
	return fmt.Sprintf("%03d", n)
}

// parseCode reads a three digit code. Non-numeric values count as zero.
func parseCode(code string) int {
	n, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return 0
	}
	return n
}

// nextGroupCode returns the smallest multiple of ten strictly greater than max.
func nextGroupCode(max int) (string, error) {
	next := ((max + groupCodeStep) / groupCodeStep) * groupCodeStep
	if next >= identifierCeiling {
		return "", ErrIdentifierSpaceExhausted
	}
	return formatCode(next), nil
}

// nextFeatureID returns max+1.
func nextFeatureID(max int) (string, error) {
	next := max + 1
	if next >= identifierCeiling {
		return "", ErrIdentifierSpaceExhausted
	}
	return formatCode(next), nil
}

// maxGroupCode reads the highest group code used by a component. Group anchors
// count, component anchors do not.
func maxGroupCode(db *gorm.DB, componentCode string) (int, error) {
	var codes []string
	err := db.Model(&models.Feature{}).
		Where("component_code = ? AND feature_group_code <> ?", componentCode, models.ReservedCode).
		Distinct().
		Pluck("feature_group_code", &codes).Error
	if err != nil {
		return 0, err
	}
	max := 0
	for _, c := range codes {
		if n := parseCode(c); n > max {
			max = n
		}
	}
	return max, nil
}

// maxFeatureID reads the highest feature id of real features in a group.
func maxFeatureID(db *gorm.DB, componentCode, groupCode string) (int, error) {
	var ids []string
	err := db.Model(&models.Feature{}).
		Scopes(models.RealFeatures).
		Where("component_code = ? AND feature_group_code = ?", componentCode, groupCode).
		Pluck("feature_id", &ids).Error
	if err != nil {
		return 0, err
	}
	max := 0
	for _, id := range ids {
		if n := parseCode(id); n > max {
			max = n
		}
	}
	return max, nil
}

// NextGroupCode allocates the next feature group code for a component from the
// current contents of the store.
func NextGroupCode(ctx context.Context, db *gorm.DB, componentCode string) (string, error) {
	max, err := maxGroupCode(db.WithContext(ctx), componentCode)
	if err != nil {
		return "", fmt.Errorf("failed to read group codes: %w", err)
	}
	return nextGroupCode(max)
}

// NextFeatureID allocates the next feature id inside a feature group from the
// current contents of the store.
func NextFeatureID(ctx context.Context, db *gorm.DB, componentCode, groupCode string) (string, error) {
	max, err := maxFeatureID(db.WithContext(ctx), componentCode, groupCode)
	if err != nil {
		return "", fmt.Errorf("failed to read feature ids: %w", err)
	}
	return nextFeatureID(max)
}

// isUniqueViolation recognises a uniqueness failure from either the translated
// gorm error or the raw driver message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
