package routes

import (
	"github.com/catchycrm/crm_end/controllers"
	"github.com/catchycrm/crm_end/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes 注册认证路由
func RegisterAuthRoutes(router *gin.Engine) {
	auth := router.Group("/api/auth")

	// 公开路由 - 不需要认证
	auth.POST("/login", controllers.Login)

	// 需要认证的路由
	auth.GET("/profile", middleware.AuthMiddleware(), controllers.GetProfile)
}
