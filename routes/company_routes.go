package routes

import (
	"github.com/catchycrm/crm_end/controllers"
	"github.com/catchycrm/crm_end/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterCompanyRoutes 注册公司相关路由
func RegisterCompanyRoutes(router *gin.Engine) {
	// 公司列表仅超级管理员使用, 选定租户前无需 X-Company-Id
	router.GET("/api/companies", middleware.AuthMiddleware(), controllers.GetCompanies)

	companyRoutes := router.Group("/api/company")
	companyRoutes.Use(middleware.AuthMiddleware())
	companyRoutes.Use(middleware.CompanyRequired())

	companyRoutes.GET("", middleware.PermissionMiddleware("company", "read"), controllers.GetCompany)
	companyRoutes.PUT("", middleware.PermissionMiddleware("company", "update"), controllers.UpdateCompany)
}
