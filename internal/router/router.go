package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/medtrack/internal/db"
	"github.com/medtrack/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(sessionSecret string) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	r.Use(sessions.Sessions("medtrack_session", store))

	api := handler.NewAPI(db.DB)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	r.POST("/auth/login", api.Login)
	r.POST("/auth/logout", api.Logout)

	// 需要认证的 API 路由
	authed := r.Group("/api")
	authed.Use(handler.AuthRequired())
	{
		authed.GET("/medications", api.ListMedications)
		authed.GET("/medications/:id", api.GetMedication)
		authed.POST("/medications", api.CreateMedication)
		authed.PUT("/medications/:id", api.UpdateMedication)
		authed.DELETE("/medications/:id", api.DeleteMedication)

		authed.POST("/medications/:id/doses/taken", api.MarkDoseTaken)
		authed.POST("/medications/:id/doses/missed", api.MarkDoseMissed)

		authed.GET("/categories", api.ListCategories)
		authed.POST("/categories", api.CreateCategory)
		authed.DELETE("/categories/:id", api.DeleteCategory)

		authed.GET("/schedule", api.GetSchedule)
		authed.GET("/adherence", api.GetAdherence)

		authed.GET("/settings", api.GetSettings)
		authed.PUT("/settings", api.UpdateSettings)
	}

	return r
}
