package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"feature_catalogue_app_go/db"
	"feature_catalogue_app_go/services"

	"github.com/labstack/echo/v4"
)

const defaultPageSize = 50

func pageParams(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if pageSize < 1 || pageSize > 500 {
		pageSize = defaultPageSize
	}
	return page, pageSize
}

// ListComponentsHandler returns every component with its feature count
func ListComponentsHandler(c echo.Context) error {
	components, err := services.ListComponents(db.DB)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, components)
}

// GetComponentHandler returns one component with its features and description
func GetComponentHandler(c echo.Context) error {
	component, err := services.GetComponent(db.DB, c.Param("code"))
	if err != nil {
		return serviceError(err)
	}
	features, _, err := services.ListFeatures(db.DB, services.FeatureFilters{ComponentCode: component.ComponentCode}, 0, 0)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"component":   component,
		"description": services.DescribeComponent(component.ComponentCode),
		"features":    features,
	})
}

// ListFeaturesHandler returns a filtered, paginated feature listing
func ListFeaturesHandler(c echo.Context) error {
	page, pageSize := pageParams(c)
	filters := services.FeatureFilters{
		Query:         c.QueryParam("q"),
		ComponentCode: c.QueryParam("component"),
		Role:          c.QueryParam("role"),
		ServiceType:   c.QueryParam("service_type"),
	}

	features, total, err := services.ListFeatures(db.DB, filters, page, pageSize)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"features":  features,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetFeatureHandler returns one feature
func GetFeatureHandler(c echo.Context) error {
	feature, err := services.GetFeature(db.DB, c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, feature)
}

// CompareFeaturesHandler returns up to five features side by side
func CompareFeaturesHandler(c echo.Context) error {
	raw := strings.Split(c.QueryParam("ids"), ",")
	features, missing, err := services.CompareFeatures(db.DB, raw)
	if err != nil {
		return serviceError(err)
	}

	var warnings []string
	requested := 0
	seen := map[string]bool{}
	for _, id := range raw {
		if id = strings.TrimSpace(id); id != "" && !seen[id] {
			seen[id] = true
			requested++
		}
	}
	if requested > 5 {
		warnings = append(warnings, "You can compare up to 5 features. Only the first 5 have been used.")
	}
	if requested < 2 {
		warnings = append(warnings, "Select at least two features to compare.")
	}
	if missing > 0 {
		warnings = append(warnings, "One or more selected features could not be found.")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"features": features,
		"errors":   warnings,
	})
}

// CatalogueStatsHandler returns the dashboard counts
func CatalogueStatsHandler(c echo.Context) error {
	stats, err := services.GetCatalogueStats(db.DB)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, stats)
}
