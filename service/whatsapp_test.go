package service

import (
	"net/http"
	"testing"

	"github.com/catchycrm/crm_end/models"
	"github.com/catchycrm/crm_end/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	utils.InitLogger()
}

func TestValidateWebhookPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload models.WebhookPayload
		valid   bool
	}{
		{"文本消息", models.WebhookPayload{Phone: "+85291234567", Message: "hi"}, true},
		{"纯媒体消息", models.WebhookPayload{Phone: "+85291234567", MediaURL: "https://cdn.example.com/a.jpg"}, true},
		{"媒体带文字", models.WebhookPayload{Phone: "+85291234567", Message: "see pic", MediaURL: "https://cdn.example.com/a.jpg"}, true},
		{"缺少电话", models.WebhookPayload{Message: "hi"}, false},
		{"缺少内容", models.WebhookPayload{Phone: "+85291234567"}, false},
		{"全空", models.WebhookPayload{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := ValidateWebhookPayload(tt.payload)
			if tt.valid {
				assert.Nil(t, apiErr)
			} else {
				require.NotNil(t, apiErr)
				assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			}
		})
	}
}
