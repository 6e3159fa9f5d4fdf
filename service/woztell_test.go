package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/catchycrm/crm_end/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *models.WoztellConfig {
	return &models.WoztellConfig{
		APIKey:    "test-key",
		APISecret: "test-secret",
		ChannelID: "channel-1",
	}
}

func TestWoztellClientSendText(t *testing.T) {
	var gotPayload map[string]interface{}
	var gotAuth, gotSecret string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/messages/send", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotSecret = r.Header.Get("X-API-Secret")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"message_id": "wz-12345"})
	}))
	defer server.Close()

	client := NewWoztellClient(testConfig(), server.URL)
	messageID, err := client.SendText(context.Background(), "+85291234567", "hello")
	require.NoError(t, err)

	assert.Equal(t, "wz-12345", messageID)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-secret", gotSecret)
	assert.Equal(t, "channel-1", gotPayload["channel_id"])
	assert.Equal(t, "+85291234567", gotPayload["phone"])
	assert.Equal(t, "text", gotPayload["type"])
	assert.Equal(t, "hello", gotPayload["content"])
}

func TestWoztellClientSendMedia(t *testing.T) {
	var gotPayload map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotPayload)
		json.NewEncoder(w).Encode(map[string]interface{}{"message_id": "wz-media-1"})
	}))
	defer server.Close()

	client := NewWoztellClient(testConfig(), server.URL)
	messageID, err := client.SendMedia(context.Background(), "+85291234567", "https://cdn.example.com/a.jpg", "image", "look at this")
	require.NoError(t, err)

	assert.Equal(t, "wz-media-1", messageID)
	assert.Equal(t, "https://cdn.example.com/a.jpg", gotPayload["media_url"])
	assert.Equal(t, "image", gotPayload["type"])
	assert.Equal(t, "look at this", gotPayload["caption"])
}

func TestWoztellClientSendMediaWithoutCaption(t *testing.T) {
	var gotPayload map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotPayload)
		json.NewEncoder(w).Encode(map[string]interface{}{"message_id": "wz-media-2"})
	}))
	defer server.Close()

	client := NewWoztellClient(testConfig(), server.URL)
	_, err := client.SendMedia(context.Background(), "+85291234567", "https://cdn.example.com/a.pdf", "document", "")
	require.NoError(t, err)

	_, hasCaption := gotPayload["caption"]
	assert.False(t, hasCaption)
}

func TestWoztellClientApiError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{"message": "invalid phone number"})
	}))
	defer server.Close()

	client := NewWoztellClient(testConfig(), server.URL)
	_, err := client.SendText(context.Background(), "bad", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid phone number")
}

func TestWoztellClientApiErrorWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewWoztellClient(testConfig(), server.URL)
	_, err := client.SendText(context.Background(), "+85291234567", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API returned 500")
}

func TestWoztellClientGetMessageStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages/wz-1/status", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{"status": "delivered"})
	}))
	defer server.Close()

	client := NewWoztellClient(testConfig(), server.URL)
	status, err := client.GetMessageStatus(context.Background(), "wz-1")
	require.NoError(t, err)
	assert.Equal(t, "delivered", status)
}
