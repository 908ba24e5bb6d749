package handlers

import (
	"net/http"

	"feature_catalogue_app_go/db"
	"feature_catalogue_app_go/middleware"
	"feature_catalogue_app_go/services"

	"github.com/labstack/echo/v4"
)

type componentRequest struct {
	ComponentCode string `json:"component_code" form:"component_code"`
	ComponentName string `json:"component_name" form:"component_name"`
}

type featureGroupRequest struct {
	ComponentCode    string `json:"component_code" form:"component_code"`
	FeatureGroupName string `json:"feature_group_name" form:"feature_group_name"`
}

// CreateComponentHandler registers a new component
func CreateComponentHandler(c echo.Context) error {
	var req componentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	component, err := services.CreateComponent(c.Request().Context(), db.DB, req.ComponentCode, req.ComponentName, middleware.GetActor(c))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, component)
}

// UpdateComponentHandler renames a component
func UpdateComponentHandler(c echo.Context) error {
	var req componentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	ctx := c.Request().Context()
	if err := services.RenameComponent(ctx, db.DB, c.Param("code"), req.ComponentName, middleware.GetActor(c)); err != nil {
		return serviceError(err)
	}
	component, err := services.GetComponent(db.DB, c.Param("code"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, component)
}

// DeleteComponentHandler removes a component and everything under it
func DeleteComponentHandler(c echo.Context) error {
	if err := services.DeleteComponent(c.Request().Context(), db.DB, c.Param("code"), middleware.GetActor(c)); err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListFeatureGroupsHandler lists feature groups, optionally for one component
func ListFeatureGroupsHandler(c echo.Context) error {
	code := c.Param("code")
	if code == "" {
		code = c.QueryParam("component")
	}
	groups, err := services.ListFeatureGroups(db.DB, code)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, groups)
}

// CreateFeatureGroupHandler creates an empty feature group
func CreateFeatureGroupHandler(c echo.Context) error {
	var req featureGroupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	if code := c.Param("code"); code != "" {
		req.ComponentCode = code
	}

	group, err := services.CreateFeatureGroup(c.Request().Context(), db.DB, req.ComponentCode, req.FeatureGroupName, middleware.GetActor(c))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, group)
}

// UpdateFeatureGroupHandler renames a feature group
func UpdateFeatureGroupHandler(c echo.Context) error {
	var req featureGroupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	err := services.RenameFeatureGroup(c.Request().Context(), db.DB,
		c.Param("code"), c.Param("group"), req.FeatureGroupName, middleware.GetActor(c))
	if err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteFeatureGroupHandler removes a feature group and its features
func DeleteFeatureGroupHandler(c echo.Context) error {
	err := services.DeleteFeatureGroup(c.Request().Context(), db.DB, c.Param("code"), c.Param("group"), middleware.GetActor(c))
	if err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// NextGroupCodeHandler previews the group code the next new group would get
func NextGroupCodeHandler(c echo.Context) error {
	code := services.NormalizeComponentCode(c.Param("code"))
	next, err := services.NextGroupCode(c.Request().Context(), db.DB, code)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"nextCode": next})
}

// NextFeatureIDHandler previews the feature id the next feature in a group would get
func NextFeatureIDHandler(c echo.Context) error {
	code := services.NormalizeComponentCode(c.Param("code"))
	next, err := services.NextFeatureID(c.Request().Context(), db.DB, code, c.Param("group"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"nextId": next})
}

// CreateFeatureHandler adds a feature
func CreateFeatureHandler(c echo.Context) error {
	var input services.FeatureInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	feature, err := services.CreateFeature(c.Request().Context(), db.DB, input, middleware.GetActor(c))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, feature)
}

// UpdateFeatureHandler edits a feature's descriptive fields
func UpdateFeatureHandler(c echo.Context) error {
	var fields services.FeatureFields
	if err := c.Bind(&fields); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	feature, err := services.UpdateFeature(c.Request().Context(), db.DB, c.Param("id"), fields, middleware.GetActor(c))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, feature)
}

// DeleteFeatureHandler removes a feature
func DeleteFeatureHandler(c echo.Context) error {
	if err := services.DeleteFeature(c.Request().Context(), db.DB, c.Param("id"), middleware.GetActor(c)); err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
