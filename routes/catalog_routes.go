package routes

import (
	"github.com/catchycrm/crm_end/controllers"
	"github.com/catchycrm/crm_end/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterCatalogRoutes 注册线索来源/阶段目录路由
// 目录为全局数据, 不做租户隔离
func RegisterCatalogRoutes(router *gin.Engine) {
	sourceRoutes := router.Group("/api/lead-sources")
	sourceRoutes.Use(middleware.AuthMiddleware())

	sourceRoutes.GET("", middleware.PermissionMiddleware("catalogs", "read"), controllers.GetLeadSources)
	sourceRoutes.POST("", middleware.PermissionMiddleware("catalogs", "create"), controllers.CreateLeadSource)
	sourceRoutes.PUT("/:id", middleware.PermissionMiddleware("catalogs", "update"), controllers.UpdateLeadSource)
	sourceRoutes.DELETE("/:id", middleware.PermissionMiddleware("catalogs", "delete"), controllers.DeleteLeadSource)

	stageRoutes := router.Group("/api/lead-stages")
	stageRoutes.Use(middleware.AuthMiddleware())

	stageRoutes.GET("", middleware.PermissionMiddleware("catalogs", "read"), controllers.GetLeadStages)
	stageRoutes.POST("", middleware.PermissionMiddleware("catalogs", "create"), controllers.CreateLeadStage)
	stageRoutes.PUT("/:id", middleware.PermissionMiddleware("catalogs", "update"), controllers.UpdateLeadStage)
	stageRoutes.DELETE("/:id", middleware.PermissionMiddleware("catalogs", "delete"), controllers.DeleteLeadStage)
}
