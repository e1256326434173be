package paymentprovider

import (
	"testing"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

func TestStripe_ConstructEvent(t *testing.T) {
	s := NewStripe("sk_test", testWebhookSecret)
	payload := []byte(`{"id":"evt_1","object":"event","api_version":"2020-08-27","type":"invoice.paid","data":{"object":{"id":"in_1","object":"invoice","customer":"cus_1"}}}`)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})

	event, err := s.ConstructEvent(signed.Payload, signed.Header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, stripe.EventType("invoice.paid"), event.Type)
	assert.NotEmpty(t, event.Data.Raw)
}

func TestStripe_ConstructEventRejectsBadSignature(t *testing.T) {
	s := NewStripe("sk_test", testWebhookSecret)
	payload := []byte(`{"id":"evt_1","object":"event","type":"invoice.paid","data":{"object":{}}}`)

	wrong := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_other",
		Timestamp: time.Now(),
	})

	_, err := s.ConstructEvent(wrong.Payload, wrong.Header)
	assert.Error(t, err)

	_, err = s.ConstructEvent(payload, "")
	assert.Error(t, err)

	stale := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now().Add(-time.Hour),
	})
	_, err = s.ConstructEvent(stale.Payload, stale.Header)
	assert.Error(t, err)
}

func TestStripe_ConstructEventRequiresSecret(t *testing.T) {
	s := NewStripe("sk_test", "")
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{}}}`)

	// Подпись пустым секретом, которую иначе принял бы webhook.ConstructEvent.
	forged := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "",
		Timestamp: time.Now(),
	})

	_, err := s.ConstructEvent(forged.Payload, forged.Header)
	assert.ErrorIs(t, err, ErrEmptyWebhookSecret)
}
