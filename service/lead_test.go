package service

import (
	"context"
	"testing"

	"github.com/catchycrm/crm_end/models"
	"github.com/catchycrm/crm_end/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanEditLead(t *testing.T) {
	lead := &models.Lead{AssignedTo: "agent-1"}

	admin := &utils.LoginUser{ID: "admin-1", Role: models.UserRoleADMIN}
	superAdmin := &utils.LoginUser{ID: "root-1", Role: models.UserRoleSUPER_ADMIN}
	assignee := &utils.LoginUser{ID: "agent-1", Role: models.UserRoleAGENT}
	otherAgent := &utils.LoginUser{ID: "agent-2", Role: models.UserRoleAGENT}

	assert.True(t, CanEditLead(admin, lead))
	assert.True(t, CanEditLead(superAdmin, lead))
	assert.True(t, CanEditLead(assignee, lead))
	assert.False(t, CanEditLead(otherAgent, lead))
	assert.False(t, CanEditLead(nil, lead))
}

func TestBulkActionRequiredPermission(t *testing.T) {
	tests := []struct {
		name string
		req  models.BulkLeadRequest
		want string
	}{
		{"删除", models.BulkLeadRequest{Status: models.LeadStatusDeleted}, "delete"},
		{"改状态", models.BulkLeadRequest{Status: models.LeadStatusContacted}, "update"},
		{"分配", models.BulkLeadRequest{UserID: "user-1"}, "assign"},
		{"改优先级", models.BulkLeadRequest{Priority: models.LeadPriorityHigh}, "update"},
		{"空请求", models.BulkLeadRequest{}, "update"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bulkActionRequiredPermission(tt.req))
		})
	}
}

// 批量入口的角色门槛与单线索路由一致：坐席不能借批量接口删除或分配线索
func TestBulkUpdateLeadsRoleGate(t *testing.T) {
	ctx := context.Background()
	agent := &utils.LoginUser{ID: "agent-1", Role: models.UserRoleAGENT}
	admin := &utils.LoginUser{ID: "admin-1", Role: models.UserRoleADMIN}

	t.Run("坐席批量删除被拒绝", func(t *testing.T) {
		result, apiErr := BulkUpdateLeads(ctx, "company-1", models.BulkLeadRequest{
			LeadIDs: []string{"64f000000000000000000001"},
			Status:  models.LeadStatusDeleted,
		}, agent)
		require.NotNil(t, apiErr)
		assert.Equal(t, 403, apiErr.StatusCode)
		assert.Nil(t, result)
	})

	t.Run("坐席批量分配被拒绝", func(t *testing.T) {
		result, apiErr := BulkUpdateLeads(ctx, "company-1", models.BulkLeadRequest{
			LeadIDs: []string{"64f000000000000000000001"},
			UserID:  "64f000000000000000000002",
		}, agent)
		require.NotNil(t, apiErr)
		assert.Equal(t, 403, apiErr.StatusCode)
		assert.Nil(t, result)
	})

	t.Run("匿名调用被拒绝", func(t *testing.T) {
		_, apiErr := BulkUpdateLeads(ctx, "company-1", models.BulkLeadRequest{
			LeadIDs: []string{"64f000000000000000000001"},
			Status:  models.LeadStatusContacted,
		}, nil)
		require.NotNil(t, apiErr)
		assert.Equal(t, 403, apiErr.StatusCode)
	})

	t.Run("管理员通过门槛", func(t *testing.T) {
		result, apiErr := BulkUpdateLeads(ctx, "company-1", models.BulkLeadRequest{
			Status: models.LeadStatusDeleted,
		}, admin)
		require.Nil(t, apiErr)
		require.NotNil(t, result)
		assert.Equal(t, 0, result.Succeeded)
	})
}

func TestCreationActivities(t *testing.T) {
	t.Run("未分配只记created", func(t *testing.T) {
		entries := creationActivities("", "")
		require.Len(t, entries, 1)
		assert.Equal(t, models.ActivityTypeCreated, entries[0].activityType)
		assert.Equal(t, "Lead created", entries[0].description)
	})

	t.Run("created先于assigned", func(t *testing.T) {
		entries := creationActivities("agent-1", "Alice Wong")
		require.Len(t, entries, 2)
		assert.Equal(t, models.ActivityTypeCreated, entries[0].activityType)
		assert.Equal(t, models.ActivityTypeAssigned, entries[1].activityType)
		assert.Equal(t, "Assigned to Alice Wong", entries[1].description)
	})
}
