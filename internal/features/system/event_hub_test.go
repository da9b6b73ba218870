package system

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/config"
	"go-approvals/internal/database"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishReachesOnlyTenantSubscribers(t *testing.T) {
	hub := NewEventHub(zap.NewNop())
	mine := hub.Subscribe("t1")
	other := hub.Subscribe("t2")

	hub.Publish(context.Background(), common_models.ApprovalEvent{
		Type:      common_models.EventApproved,
		TenantID:  "t1",
		RequestID: "r1",
	})

	require.Len(t, mine.Events, 1)
	var got common_models.ApprovalEvent
	require.NoError(t, json.Unmarshal(<-mine.Events, &got))
	assert.Equal(t, common_models.EventApproved, got.Type)
	assert.Equal(t, "r1", got.RequestID)
	assert.Empty(t, other.Events)
}

func TestPublishDropsForSlowSubscribers(t *testing.T) {
	hub := NewEventHub(zap.NewNop())
	sub := hub.Subscribe("t1")

	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Publish(context.Background(), common_models.ApprovalEvent{TenantID: "t1", RequestID: "r1"})
	}
	assert.Len(t, sub.Events, subscriberBuffer)
}

func TestUnsubscribe(t *testing.T) {
	hub := NewEventHub(zap.NewNop())
	a := hub.Subscribe("t1")
	b := hub.Subscribe("t1")
	assert.Equal(t, 2, hub.Subscribers("t1"))

	hub.Unsubscribe(a)
	hub.Unsubscribe(a)
	assert.Equal(t, 1, hub.Subscribers("t1"))
	_, open := <-a.Events
	assert.False(t, open)

	hub.Unsubscribe(b)
	assert.Zero(t, hub.Subscribers("t1"))
	hub.Publish(context.Background(), common_models.ApprovalEvent{TenantID: "t1"})
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	app := fiber.New()
	cfg := &config.Config{SkipAuth: true}
	NewWebSocketApi(NewWebSocketController(NewEventHub(zap.NewNop()), zap.NewNop()), cfg).Setup(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestHealthWithoutStores(t *testing.T) {
	app := fiber.New()
	cfg := &config.Config{StorageDriver: config.StorageMemory}
	NewSystemApi(NewHealthController(&database.MongodbDB{}, &database.PostgresDB{}, cfg)).Setup(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, config.StorageMemory, body["storage_driver"])
}
