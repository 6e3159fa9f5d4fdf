package routes

import (
	"github.com/catchycrm/crm_end/controllers"
	"github.com/catchycrm/crm_end/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterDashboardStatsRoutes 注册数据看板路由
func RegisterDashboardStatsRoutes(router *gin.Engine) {
	dashboardRoutes := router.Group("/api/dashboard")
	dashboardRoutes.Use(middleware.AuthMiddleware())
	dashboardRoutes.Use(middleware.CompanyRequired())

	dashboardRoutes.GET("/stats", middleware.PermissionMiddleware("dashboard", "read"), controllers.GetDashboardStats)
}
