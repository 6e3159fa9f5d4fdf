package controllers

import (
	"net/http"

	"github.com/catchycrm/crm_end/middleware"
	"github.com/catchycrm/crm_end/repository"
	"github.com/catchycrm/crm_end/service"
	"github.com/catchycrm/crm_end/utils"

	"github.com/gin-gonic/gin"
)

// GetDashboardStats 获取数据看板统计信息
// 管理员看全公司，坐席只看自己名下的线索
func GetDashboardStats(c *gin.Context) {
	user := utils.GetUser(c)
	companyID := middleware.GetCompanyID(c)

	utils.LogInfo(map[string]interface{}{
		"email":     user.Email,
		"companyId": companyID,
	}, "获取数据看板统计信息")

	data, err := service.BuildDashboardData(repository.GetContext(), companyID, user)
	if err != nil {
		utils.Logger.Error().Err(err).Str("companyId", companyID).Msg("构建数据看板失败")
		utils.ErrorResponse(c, "获取看板数据失败", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(c, data, "")
}
