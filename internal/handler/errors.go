package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/macrolog/internal/logging"
	"github.com/macrolog/internal/nutrition"
	"github.com/macrolog/internal/service"
	"go.uber.org/zap"
)

// handleServiceError 将业务错误映射为 HTTP 状态码
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, nutrition.ErrInvalidEntry),
		errors.Is(err, nutrition.ErrInvalidProfile):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidImage):
		respondError(c, http.StatusBadRequest, "图片格式不支持")
	case errors.Is(err, service.ErrAIVisionUnsupported):
		respondError(c, http.StatusBadRequest, "当前 AI 服务商不支持图片识别")
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "邮箱或密码错误")
	case errors.Is(err, nutrition.ErrEntryNotFound):
		respondError(c, http.StatusNotFound, "记录不存在")
	case errors.Is(err, nutrition.ErrItemOutOfRange):
		respondError(c, http.StatusNotFound, "食物条目不存在")
	case errors.Is(err, service.ErrProfileNotFound):
		respondError(c, http.StatusNotFound, "尚未创建个人档案")
	case errors.Is(err, service.ErrRecipeNotFound):
		respondError(c, http.StatusNotFound, "食谱不存在")
	case errors.Is(err, service.ErrMealPlanNotFound):
		respondError(c, http.StatusNotFound, "膳食计划不存在")
	case errors.Is(err, service.ErrProductNotFound):
		respondError(c, http.StatusNotFound, "未找到该条形码对应的商品")
	case errors.Is(err, service.ErrAccountExists):
		respondError(c, http.StatusConflict, "账户已存在")
	case errors.Is(err, service.ErrProfileExists):
		respondError(c, http.StatusConflict, "个人档案已存在")
	case errors.Is(err, service.ErrAIRequestInProgress):
		respondError(c, http.StatusConflict, "上一个请求仍在处理中")
	case errors.Is(err, service.ErrAIAPIKeyMissing):
		respondError(c, http.StatusBadGateway, "AI 服务未配置")
	case errors.Is(err, service.ErrAIMalformedResponse):
		respondError(c, http.StatusBadGateway, "AI 返回内容无法解析，请重试")
	case errors.Is(err, service.ErrAIUpstream), errors.Is(err, service.ErrBarcodeUpstream):
		respondError(c, http.StatusBadGateway, "外部服务暂时不可用，请稍后重试")
	default:
		logging.Logger.Error("request_failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
