package routes

import (
	"github.com/catchycrm/crm_end/controllers"
	"github.com/catchycrm/crm_end/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterUserRoutes 注册用户管理路由
func RegisterUserRoutes(router *gin.Engine) {
	userRoutes := router.Group("/api/users")
	userRoutes.Use(middleware.AuthMiddleware())
	userRoutes.Use(middleware.CompanyRequired())

	userRoutes.GET("", middleware.PermissionMiddleware("users", "read"), controllers.GetUsers)
	userRoutes.POST("", middleware.PermissionMiddleware("users", "create"), controllers.CreateUser)
	userRoutes.GET("/:id", middleware.PermissionMiddleware("users", "read"), controllers.GetUserDetail)
	userRoutes.PUT("/:id", middleware.PermissionMiddleware("users", "update"), controllers.UpdateUser)
	userRoutes.DELETE("/:id", middleware.PermissionMiddleware("users", "delete"), controllers.DeleteUser)
}
