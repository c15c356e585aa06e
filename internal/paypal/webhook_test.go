package paypal

import (
	"errors"
	"testing"

	"storefront-deposits-go/internal/models"
	"storefront-deposits-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebhookCaptureEvent(t *testing.T) {
	body := []byte(`{
		"id": "WH-1",
		"event_type": "PAYMENT.CAPTURE.COMPLETED",
		"resource": {
			"id": "CAP-1",
			"status": "COMPLETED",
			"custom_id": "dep-1",
			"supplementary_data": {"related_ids": {"order_id": "ORD-1"}},
			"payer": {"email_address": "a@example.com", "payer_id": "P1"}
		}
	}`)

	event, err := ParseWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, "PAYMENT.CAPTURE.COMPLETED", event.EventType)
	assert.Equal(t, "CAP-1", event.TransactionId())
	assert.Equal(t, "dep-1", event.CustomId())
	assert.Equal(t, "ORD-1", event.OrderId())
	assert.Equal(t, "a@example.com", event.PayerEmail())
	assert.Equal(t, "P1", event.PayerId())
}

func TestParseWebhookPrefersPurchaseUnitCustomId(t *testing.T) {
	body := []byte(`{"event_type":"CHECKOUT.ORDER.COMPLETED","resource":{"id":"ORD-9","custom_id":"top","purchase_units":[{"custom_id":"unit"}]}}`)

	event, err := ParseWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, "unit", event.CustomId())
	assert.Empty(t, event.PayerEmail())
	assert.Empty(t, event.OrderId())
}

func TestParseWebhookRejectsBadInput(t *testing.T) {
	_, err := ParseWebhook([]byte(`not json`))
	assert.True(t, errors.Is(err, store.ErrValidation))

	_, err = ParseWebhook([]byte(`{"resource":{"id":"x"}}`))
	assert.True(t, errors.Is(err, store.ErrValidation))
}

func TestStatusFromCapture(t *testing.T) {
	cases := map[string]models.DepositStatus{
		"COMPLETED":          models.DepositStatusCompleted,
		"completed":          models.DepositStatusCompleted,
		"PENDING":            models.DepositStatusPending,
		"DECLINED":           models.DepositStatusFailed,
		"FAILED":             models.DepositStatusFailed,
		"REFUNDED":           models.DepositStatusRefunded,
		"PARTIALLY_REFUNDED": models.DepositStatusRefunded,
		"SOMETHING_NEW":      models.DepositStatusPending,
	}
	for in, want := range cases {
		assert.Equal(t, want, StatusFromCapture(in), in)
	}
}
