package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/catchycrm/crm_end/models"
	"github.com/catchycrm/crm_end/utils"
)

// WoztellClient Woztell消息网关HTTP客户端
type WoztellClient struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	channelID  string
	httpClient *http.Client
}

// NewWoztellClient 按公司配置构造客户端，30秒请求超时
func NewWoztellClient(cfg *models.WoztellConfig, baseURL string) *WoztellClient {
	return &WoztellClient{
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		channelID: cfg.ChannelID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SendText 发送文本消息，成功返回供应商消息ID
func (c *WoztellClient) SendText(ctx context.Context, phone, message string) (string, error) {
	payload := map[string]interface{}{
		"channel_id": c.channelID,
		"phone":      phone,
		"type":       "text",
		"content":    message,
	}
	return c.sendMessage(ctx, payload)
}

// SendMedia 发送媒体消息，caption为空时不附带
func (c *WoztellClient) SendMedia(ctx context.Context, phone, mediaURL, mediaType, caption string) (string, error) {
	payload := map[string]interface{}{
		"channel_id": c.channelID,
		"phone":      phone,
		"type":       mediaType,
		"media_url":  mediaURL,
	}
	if caption != "" {
		payload["caption"] = caption
	}
	return c.sendMessage(ctx, payload)
}

// GetMessageStatus 查询消息投递状态
func (c *WoztellClient) GetMessageStatus(ctx context.Context, woztellMessageID string) (string, error) {
	respData, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/messages/%s/status", woztellMessageID), nil)
	if err != nil {
		return "", err
	}

	status, ok := respData["status"].(string)
	if !ok {
		return "unknown", nil
	}
	return status, nil
}

func (c *WoztellClient) sendMessage(ctx context.Context, payload map[string]interface{}) (string, error) {
	respData, err := c.doRequest(ctx, http.MethodPost, "/messages/send", payload)
	if err != nil {
		return "", err
	}

	messageID, _ := respData["message_id"].(string)
	return messageID, nil
}

func (c *WoztellClient) doRequest(ctx context.Context, method, endpoint string, payload map[string]interface{}) (map[string]interface{}, error) {
	url := c.baseURL + endpoint

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("序列化请求失败: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-API-Secret", c.apiSecret)

	utils.Logger.Info().
		Str("method", method).
		Str("url", url).
		Msg("调用Woztell API")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		utils.Logger.Error().Err(err).Str("url", url).Msg("Woztell API请求失败")
		return nil, fmt.Errorf("请求Woztell失败: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		// 尽量取供应商返回的错误文案
		errorMessage := fmt.Sprintf("API returned %d", resp.StatusCode)
		var errorData map[string]interface{}
		if json.Unmarshal(respBytes, &errorData) == nil {
			if msg, ok := errorData["message"].(string); ok && msg != "" {
				errorMessage = msg
			}
		} else if len(respBytes) > 0 {
			errorMessage = string(respBytes)
		}

		utils.Logger.Error().
			Int("status", resp.StatusCode).
			Str("error", errorMessage).
			Msg("Woztell API返回错误")
		return nil, fmt.Errorf("%s", errorMessage)
	}

	var respData map[string]interface{}
	if err := json.Unmarshal(respBytes, &respData); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	return respData, nil
}
