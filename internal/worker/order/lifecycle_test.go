package order

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/stitchbook/internal/config"
	"github.com/Additional-Code/stitchbook/internal/entity"
	"github.com/Additional-Code/stitchbook/internal/messaging"
	ordersvc "github.com/Additional-Code/stitchbook/internal/service/order"
)

func TestLifecycleHandler(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cfg := config.Config{Messaging: config.Messaging{Kafka: config.Kafka{Topic: "orders.lifecycle"}}}
	reg := NewLifecycleHandler(zap.New(core), cfg)
	assert.Equal(t, "orders.lifecycle", reg.Topic)

	payload, err := json.Marshal(ordersvc.LifecycleEvent{
		Type:         ordersvc.EventOrderCreated,
		BillNumber:   "B1",
		Status:       entity.StatusPending,
		DeliveryDate: "2025-01-10",
		OccurredAt:   time.Now().UTC(),
	})
	require.NoError(t, err)

	err = reg.Handler(context.Background(), messaging.Message{
		Topic:   "orders.lifecycle",
		Value:   payload,
		Headers: map[string]string{messaging.HeaderEventType: ordersvc.EventOrderCreated},
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("order created event processed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "B1", entries[0].ContextMap()["billNumber"])
}

func TestLifecycleHandlerFallsBackToPayloadType(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	reg := NewLifecycleHandler(zap.New(core), config.Config{})

	payload, err := json.Marshal(ordersvc.LifecycleEvent{Type: ordersvc.EventOrderCompleted, BillNumber: "B2"})
	require.NoError(t, err)

	require.NoError(t, reg.Handler(context.Background(), messaging.Message{Value: payload}))
	assert.Equal(t, 1, logs.FilterMessage("order completed event processed").Len())
}

func TestLifecycleHandlerRejectsGarbage(t *testing.T) {
	reg := NewLifecycleHandler(zap.NewNop(), config.Config{})

	err := reg.Handler(context.Background(), messaging.Message{Value: []byte("{not json")})
	assert.Error(t, err)
}
