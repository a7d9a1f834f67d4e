package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/macrolog/internal/nutrition"
	"github.com/macrolog/internal/service"
)

type appendEntriesPayload struct {
	Entries []nutrition.LogEntry `json:"entries"`
}

type waterPayload struct {
	Delta int `json:"delta"`
}

// GetToday 返回当天日志快照
func (a *API) GetToday(c *gin.Context) {
	snapshot, err := a.ledger.Today(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// AppendEntries 批量追加餐食或运动条目，例如图片识别或条形码的结果
func (a *API) AppendEntries(c *gin.Context) {
	var payload appendEntriesPayload
	if !bindJSON(c, &payload, "日志格式错误") {
		return
	}

	added, err := a.ledger.AppendEntries(c.Request.Context(), payload.Entries)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if added == nil {
		added = []nutrition.LogEntry{}
	}
	a.respondSnapshot(c, http.StatusCreated, gin.H{"added": added})
}

// AddMeal 手动录入一项食物
func (a *API) AddMeal(c *gin.Context) {
	var input service.ManualMealInput
	if !bindJSON(c, &input, "餐食格式错误") {
		return
	}

	entry, err := a.ledger.AddManualMeal(c.Request.Context(), input)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	a.respondSnapshot(c, http.StatusCreated, gin.H{"entry": entry})
}

// AddExercise 录入运动
func (a *API) AddExercise(c *gin.Context) {
	var input service.ExerciseInput
	if !bindJSON(c, &input, "运动格式错误") {
		return
	}

	entry, err := a.ledger.AddExercise(c.Request.Context(), input)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	a.respondSnapshot(c, http.StatusCreated, gin.H{"entry": entry})
}

// DeleteEntry 删除整条记录
func (a *API) DeleteEntry(c *gin.Context) {
	if err := a.ledger.DeleteEntry(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}
	a.respondSnapshot(c, http.StatusOK, nil)
}

// DeleteMealItem 删除餐食中的一项，越界下标按已删除处理
func (a *API) DeleteMealItem(c *gin.Context) {
	index, err := parseIndexParam(c, "index")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的食物下标")
		return
	}

	entryRemoved, err := a.ledger.DeleteMealItem(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	a.respondSnapshot(c, http.StatusOK, gin.H{"entryRemoved": entryRemoved})
}

// EditMealItem 用完整记录替换餐食中的一项
func (a *API) EditMealItem(c *gin.Context) {
	index, err := parseIndexParam(c, "index")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的食物下标")
		return
	}

	var item nutrition.MacroEntry
	if !bindJSON(c, &item, "食物格式错误") {
		return
	}

	if err := a.ledger.EditMealItem(c.Request.Context(), c.Param("id"), index, item); err != nil {
		handleServiceError(c, err)
		return
	}
	a.respondSnapshot(c, http.StatusOK, nil)
}

// ClearDay 清空当天日志与饮水
func (a *API) ClearDay(c *gin.Context) {
	if err := a.ledger.ClearDay(c.Request.Context()); err != nil {
		handleServiceError(c, err)
		return
	}
	a.respondSnapshot(c, http.StatusOK, nil)
}

// AdjustWater 调整饮水杯数
func (a *API) AdjustWater(c *gin.Context) {
	var payload waterPayload
	if !bindJSON(c, &payload, "饮水格式错误") {
		return
	}

	water, err := a.ledger.AdjustWater(c.Request.Context(), payload.Delta)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"water": water})
}

// respondSnapshot 在修改后附带最新的当天快照，extra 中的字段合并到响应顶层
func (a *API) respondSnapshot(c *gin.Context, status int, extra gin.H) {
	snapshot, err := a.ledger.Today(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	payload := gin.H{"today": snapshot}
	for key, value := range extra {
		payload[key] = value
	}
	c.JSON(status, payload)
}
