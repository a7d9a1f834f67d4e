package handler

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/macrolog/internal/logging"
	"github.com/macrolog/internal/service"
	"go.uber.org/zap"
)

const sessionUserKey = "user_id"

type signUpPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
	Password string `json:"password"`
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp 创建账户与个人档案并登录
func (a *API) SignUp(c *gin.Context) {
	var payload signUpPayload
	if !bindJSON(c, &payload, "注册信息格式错误") {
		return
	}

	profileInput := service.SignUpInput{Name: payload.Name, Email: payload.Email, Avatar: payload.Avatar}
	if err := profileInput.Validate(); err != nil {
		handleServiceError(c, err)
		return
	}

	user, err := a.accounts.SignUp(service.CredentialsInput{Email: payload.Email, Password: payload.Password})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	profile, err := a.profiles.Create(c.Request.Context(), profileInput)
	if err != nil {
		// 档案未建成时撤销账户，保证可以重新注册
		if rollbackErr := a.accounts.Delete(user.ID); rollbackErr != nil {
			logging.Logger.Error("signup_rollback_failed", zap.Uint("user_id", user.ID), zap.Error(rollbackErr))
		}
		handleServiceError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return
	}

	c.JSON(http.StatusCreated, a.profiles.View(profile))
}

// Login 校验凭据并写入会话
func (a *API) Login(c *gin.Context) {
	var payload loginPayload
	if !bindJSON(c, &payload, "登录信息格式错误") {
		return
	}

	user, err := a.accounts.Authenticate(payload.Email, payload.Password)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

// Logout 清除会话
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	c.Status(http.StatusNoContent)
}

// AuthRequired 要求请求携带有效会话
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if session.Get(sessionUserKey) == nil {
			respondError(c, http.StatusUnauthorized, "请先登录")
			c.Abort()
			return
		}
		c.Next()
	}
}

func isAuthenticated(c *gin.Context) bool {
	return sessions.Default(c).Get(sessionUserKey) != nil
}
