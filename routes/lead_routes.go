package routes

import (
	"github.com/catchycrm/crm_end/controllers"
	"github.com/catchycrm/crm_end/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterLeadRoutes 注册线索相关路由
func RegisterLeadRoutes(router *gin.Engine) {
	leadRoutes := router.Group("/api/leads")
	leadRoutes.Use(middleware.AuthMiddleware())
	leadRoutes.Use(middleware.CompanyRequired())

	leadRoutes.GET("", middleware.PermissionMiddleware("leads", "read"), controllers.GetLeads)
	leadRoutes.POST("", middleware.PermissionMiddleware("leads", "create"), controllers.CreateLead)
	leadRoutes.POST("/bulk", middleware.PermissionMiddleware("leads", "update"), controllers.BulkLeadAction)
	leadRoutes.GET("/:id", middleware.PermissionMiddleware("leads", "read"), controllers.GetLead)
	leadRoutes.PUT("/:id", middleware.PermissionMiddleware("leads", "update"), controllers.UpdateLead)
	leadRoutes.DELETE("/:id", middleware.PermissionMiddleware("leads", "delete"), controllers.DeleteLead)
	leadRoutes.POST("/:id/assign", middleware.PermissionMiddleware("leads", "assign"), controllers.AssignLead)
	leadRoutes.POST("/:id/status", middleware.PermissionMiddleware("leads", "update"), controllers.ChangeLeadStatus)
	leadRoutes.POST("/:id/stage", middleware.PermissionMiddleware("leads", "update"), controllers.ChangeLeadStage)

	// 备注路由挂在线索下
	leadRoutes.GET("/:id/notes", middleware.PermissionMiddleware("notes", "read"), controllers.GetNotes)
	leadRoutes.POST("/:id/notes", middleware.PermissionMiddleware("notes", "create"), controllers.AddNote)
	leadRoutes.DELETE("/:id/notes/:noteId", middleware.PermissionMiddleware("notes", "delete"), controllers.DeleteNote)
}
