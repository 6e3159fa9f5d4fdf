package routes

import (
	"github.com/catchycrm/crm_end/controllers"
	"github.com/catchycrm/crm_end/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterWhatsAppRoutes 注册WhatsApp相关路由
func RegisterWhatsAppRoutes(router *gin.Engine) {
	// webhook由Woztell平台调用, 通过路径中的密钥鉴权
	router.POST("/api/webhook/woztell/:secret", controllers.WebhookReceiver)
	router.GET("/api/webhook/woztell/:secret", controllers.WebhookTest)

	whatsappRoutes := router.Group("/api/whatsapp")
	whatsappRoutes.Use(middleware.AuthMiddleware())
	whatsappRoutes.Use(middleware.CompanyRequired())

	whatsappRoutes.POST("/send", middleware.PermissionMiddleware("messages", "send"), controllers.SendMessage)
	whatsappRoutes.GET("/messages/:leadId", middleware.PermissionMiddleware("messages", "read"), controllers.GetMessages)
	whatsappRoutes.GET("/channels", middleware.PermissionMiddleware("channels", "read"), controllers.GetChannels)

	// Woztell配置管理 - 仅管理员
	configRoutes := whatsappRoutes.Group("/config")
	configRoutes.Use(middleware.AdminRequired())

	configRoutes.GET("", controllers.GetWoztellConfig)
	configRoutes.POST("", controllers.UpsertWoztellConfig)
	configRoutes.POST("/rotate-secret", controllers.RotateWebhookSecret)
}
