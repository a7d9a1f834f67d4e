package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxProgressDays = 365

// GetProgress 返回逐日汇总与体重曲线，days 限制最近天数，缺省为全部
func (a *API) GetProgress(c *gin.Context) {
	days := 0
	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 || parsed > maxProgressDays {
			respondError(c, http.StatusBadRequest, "无效的天数")
			return
		}
		days = parsed
	}

	ctx := c.Request.Context()
	history, err := a.progress.History(ctx, days)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	weights, err := a.progress.WeightSeries(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"days": history, "weights": weights})
}
