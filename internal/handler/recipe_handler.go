package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/macrolog/internal/nutrition"
	"github.com/macrolog/internal/service"
)

type themePayload struct {
	Theme nutrition.Theme `json:"theme"`
}

// ListFavorites 返回收藏
func (a *API) ListFavorites(c *gin.Context) {
	list, err := a.recipes.Favorites(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": list})
}

// AddFavorite 收藏食谱
func (a *API) AddFavorite(c *gin.Context) {
	var recipe nutrition.Recipe
	if !bindJSON(c, &recipe, "食谱格式错误") {
		return
	}

	saved, err := a.recipes.AddFavorite(c.Request.Context(), recipe)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"recipe": saved})
}

// RemoveFavorite 取消收藏
func (a *API) RemoveFavorite(c *gin.Context) {
	if err := a.recipes.RemoveFavorite(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListCustomRecipes 返回自定义食谱
func (a *API) ListCustomRecipes(c *gin.Context) {
	list, err := a.recipes.CustomRecipes(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": list})
}

// CreateCustomRecipe 新建自定义食谱
func (a *API) CreateCustomRecipe(c *gin.Context) {
	var input service.CustomRecipeInput
	if !bindJSON(c, &input, "食谱格式错误") {
		return
	}

	recipe, err := a.recipes.CreateCustomRecipe(c.Request.Context(), input)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"recipe": recipe})
}

// DeleteCustomRecipe 删除自定义食谱
func (a *API) DeleteCustomRecipe(c *gin.Context) {
	if err := a.recipes.DeleteCustomRecipe(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMealPlans 返回膳食计划历史
func (a *API) ListMealPlans(c *gin.Context) {
	plans, err := a.recipes.MealPlans(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

// DeleteMealPlan 删除膳食计划
func (a *API) DeleteMealPlan(c *gin.Context) {
	if err := a.recipes.DeletePlan(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetTheme 返回界面主题
func (a *API) GetTheme(c *gin.Context) {
	theme, err := a.preferences.Theme(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, themePayload{Theme: theme})
}

// SetTheme 保存界面主题
func (a *API) SetTheme(c *gin.Context) {
	var payload themePayload
	if !bindJSON(c, &payload, "主题格式错误") {
		return
	}
	if err := a.preferences.SetTheme(c.Request.Context(), payload.Theme); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}
