package shortsos

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shortsos/shortsos/internal/apperr"
	"github.com/shortsos/shortsos/internal/config"
)

func TestCheckConfig(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{name: "секрет JWT задан", secret: "s3cret"},
		{name: "секрет JWT пустой", secret: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Auth: config.Auth{JWTSecretKey: tt.secret}}

			err := checkConfig(cfg)

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrJWTSecretMissing)
				assert.ErrorIs(t, err, apperr.ErrConfiguration)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStripeEnabled(t *testing.T) {
	tests := []struct {
		name          string
		secretKey     string
		webhookSecret string
		want          bool
	}{
		{name: "оба секрета заданы", secretKey: "sk_test", webhookSecret: "whsec", want: true},
		{name: "нет секрета вебхуков", secretKey: "sk_test", webhookSecret: "", want: false},
		{name: "нет ключа API", secretKey: "", webhookSecret: "whsec", want: false},
		{name: "ничего не задано", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Stripe: config.Stripe{
				StripeSecretKey:     tt.secretKey,
				StripeWebhookSecret: tt.webhookSecret,
			}}

			assert.Equal(t, tt.want, stripeEnabled(cfg))
		})
	}
}
