package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/macrolog/internal/handler"
	"github.com/macrolog/internal/metrics"
	"github.com/macrolog/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options 控制路由层的会话与跨域配置
type Options struct {
	SessionSecret string
	CORSOrigins   []string
	// SecureCookie 为 true 时会话 cookie 仅通过 HTTPS 发送
	SecureCookie bool
	// Health 为 /healthz 提供依赖检查，nil 表示始终健康
	Health func() error
	// MaxUploadBytes 覆盖 multipart 内存上限，0 使用 12MB
	MaxUploadBytes int64
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(opts Options, api *handler.API) *gin.Engine {
	metrics.Register()

	r := gin.New()
	r.Use(middleware.RequestLogger(), middleware.Recovery(), middleware.Language())

	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 12 << 20
	}
	r.MaxMultipartMemory = maxUpload

	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// 配置会话中间件
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("macrolog_session", store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/healthz", func(c *gin.Context) {
		if opts.Health != nil {
			if err := opts.Health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := r.Group("/api")
	{
		auth := apiGroup.Group("/auth")
		auth.POST("/signup", api.SignUp)
		auth.POST("/login", api.Login)
		auth.POST("/logout", api.Logout)

		apiGroup.GET("/profile", api.GetProfile)

		// 需要登录的路由
		private := apiGroup.Group("")
		private.Use(handler.AuthRequired())
		{
			private.POST("/profile", api.CreateProfile)
			private.PUT("/profile", api.UpdateProfile)
			private.POST("/profile/weight", api.LogWeight)

			private.GET("/today", api.GetToday)
			private.POST("/log/entries", api.AppendEntries)
			private.POST("/log/meal", api.AddMeal)
			private.POST("/log/exercise", api.AddExercise)
			private.DELETE("/log/entries/:id", api.DeleteEntry)
			private.DELETE("/log/entries/:id/items/:index", api.DeleteMealItem)
			private.PUT("/log/entries/:id/items/:index", api.EditMealItem)
			private.DELETE("/log", api.ClearDay)
			private.POST("/water", api.AdjustWater)

			private.GET("/progress", api.GetProgress)

			private.GET("/favorites", api.ListFavorites)
			private.POST("/favorites", api.AddFavorite)
			private.DELETE("/favorites/:id", api.RemoveFavorite)

			private.GET("/recipes/custom", api.ListCustomRecipes)
			private.POST("/recipes/custom", api.CreateCustomRecipe)
			private.DELETE("/recipes/custom/:id", api.DeleteCustomRecipe)

			private.GET("/mealplans", api.ListMealPlans)
			private.POST("/mealplans/generate", api.GenerateMealPlan)
			private.DELETE("/mealplans/:id", api.DeleteMealPlan)

			private.GET("/theme", api.GetTheme)
			private.PUT("/theme", api.SetTheme)

			private.POST("/ai/analyze", api.AnalyzeMeal)
			private.POST("/ai/recipes", api.SuggestRecipes)
			private.POST("/ai/chat", api.Chat)

			private.GET("/barcode/:code", api.LookupBarcode)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r
}
