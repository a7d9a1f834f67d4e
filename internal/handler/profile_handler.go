package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/macrolog/internal/service"
)

type weightPayload struct {
	Date   string  `json:"date"`
	Weight float64 `json:"weight"`
	Unit   string  `json:"unit"`
}

// GetProfile 返回档案；未注册时 signedUp=false，未登录时不返回档案内容
func (a *API) GetProfile(c *gin.Context) {
	ctx := c.Request.Context()
	profile, ok, err := a.profiles.Load(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	hasAccount, err := a.accounts.Exists()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	authenticated := isAuthenticated(c)
	if !ok || !authenticated {
		c.JSON(http.StatusOK, gin.H{
			"signedUp":      ok,
			"hasAccount":    hasAccount,
			"authenticated": authenticated,
		})
		return
	}

	c.JSON(http.StatusOK, a.profiles.View(profile))
}

// CreateProfile 在档案丢失后为已登录账户重新建档
func (a *API) CreateProfile(c *gin.Context) {
	var input service.SignUpInput
	if !bindJSON(c, &input, "档案格式错误") {
		return
	}

	profile, err := a.profiles.Create(c.Request.Context(), input)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a.profiles.View(profile))
}

// UpdateProfile 局部更新档案
func (a *API) UpdateProfile(c *gin.Context) {
	var input service.ProfileUpdate
	if !bindJSON(c, &input, "档案格式错误") {
		return
	}

	profile, err := a.profiles.Update(c.Request.Context(), input)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.profiles.View(profile))
}

// LogWeight 记录体重
func (a *API) LogWeight(c *gin.Context) {
	var payload weightPayload
	if !bindJSON(c, &payload, "体重格式错误") {
		return
	}

	profile, err := a.profiles.LogWeight(c.Request.Context(), payload.Date, payload.Weight, payload.Unit)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.profiles.View(profile))
}
