package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/macrolog/internal/nutrition"
	"github.com/macrolog/internal/service"
)

type chatPayload struct {
	Messages []service.ChatMessage `json:"messages"`
}

func (a *API) readImage(c *gin.Context, required bool) ([]byte, bool) {
	data, err := readUpload(c, "image")
	switch {
	case err == nil:
		return data, true
	case (errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart)) && !required:
		return nil, true
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		respondError(c, http.StatusBadRequest, "请上传图片")
	case errors.Is(err, errUploadTooLarge):
		respondError(c, http.StatusBadRequest, "图片不能超过 10MB")
	default:
		respondError(c, http.StatusBadRequest, "图片读取失败")
	}
	return nil, false
}

// AnalyzeMeal 识别餐食图片；表单 log=true 时直接记为一餐
func (a *API) AnalyzeMeal(c *gin.Context) {
	image, ok := a.readImage(c, true)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	items, err := a.ai.AnalyzeMealImage(ctx, image)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if c.PostForm("log") != "true" || len(items) == 0 {
		c.JSON(http.StatusOK, gin.H{"items": items})
		return
	}

	added, err := a.ledger.AppendEntries(ctx, []nutrition.LogEntry{nutrition.NewMeal("", "", items...)})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	a.respondSnapshot(c, http.StatusCreated, gin.H{"items": items, "entry": added[0]})
}

// SuggestRecipes 根据文字或图片推荐食谱，自动带上档案中的饮食偏好
func (a *API) SuggestRecipes(c *gin.Context) {
	image, ok := a.readImage(c, false)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	query := service.RecipeQuery{Query: strings.TrimSpace(c.PostForm("query")), Image: image}
	if profile, signedUp, err := a.profiles.Load(ctx); err != nil {
		handleServiceError(c, err)
		return
	} else if signedUp {
		query.Diet = profile.DietaryPreference
	}

	recipes, err := a.ai.SuggestRecipes(ctx, query)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// GenerateMealPlan 生成三日膳食计划并保存到历史
func (a *API) GenerateMealPlan(c *gin.Context) {
	ctx := c.Request.Context()
	profile, ok, err := a.profiles.Load(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if !ok {
		handleServiceError(c, service.ErrProfileNotFound)
		return
	}

	plan, err := a.ai.GenerateMealPlan(ctx, profile)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	saved, err := a.recipes.SavePlan(ctx, plan)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"plan": saved})
}

// Chat 与 AI 营养师对话
func (a *API) Chat(c *gin.Context) {
	var payload chatPayload
	if !bindJSON(c, &payload, "对话格式错误") {
		return
	}

	reply, err := a.ai.Chat(c.Request.Context(), payload.Messages)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// LookupBarcode 按条形码查询一份食物的营养
func (a *API) LookupBarcode(c *gin.Context) {
	entry, err := a.barcodes.Lookup(c.Request.Context(), c.Param("code"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": entry})
}
