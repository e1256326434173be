package notification

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSender_HandleMessage(t *testing.T) {
	tests := []struct {
		name          string
		body          []byte
		setupMocks    func(*MockTransport)
		expectedError bool
		errorMessage  string
	}{
		{
			name: "напоминание об окончании плана",
			body: []byte(`{"kind":"plan_expiring","user_id":"u-1","email":"creator@example.com","tier":"pro","plan_expiry":"2026-03-13T09:00:00Z","days_left":3}`),
			setupMocks: func(tr *MockTransport) {
				client := new(MockSMTPClient)
				writer := new(MockSMTPWriter)

				tr.On("From").Return("billing@shortsos.app")
				tr.On("Connect").Return(client, nil).Once()
				client.On("Mail", "billing@shortsos.app").Return(nil).Once()
				client.On("Rcpt", "creator@example.com").Return(nil).Once()
				client.On("Data").Return(writer, nil).Once()
				writer.On("Write", mock.MatchedBy(func(p []byte) bool {
					return bytes.Contains(p, []byte("Subject: Your ShortsOS plan expires soon")) &&
						bytes.Contains(p, []byte("expires in 3 day(s), on 2026-03-13"))
				})).Return(100, nil).Once()
				writer.On("Close").Return(nil).Once()
				client.On("Quit").Return(nil).Once()
				client.On("Close").Return(nil).Once()
			},
		},
		{
			name: "активация плана",
			body: []byte(`{"kind":"plan_activated","user_id":"u-1","email":"creator@example.com","tier":"agency","plan_expiry":"2026-04-09T12:00:00Z"}`),
			setupMocks: func(tr *MockTransport) {
				client := new(MockSMTPClient)
				writer := new(MockSMTPWriter)

				tr.On("From").Return("billing@shortsos.app")
				tr.On("Connect").Return(client, nil).Once()
				client.On("Mail", "billing@shortsos.app").Return(nil).Once()
				client.On("Rcpt", "creator@example.com").Return(nil).Once()
				client.On("Data").Return(writer, nil).Once()
				writer.On("Write", mock.MatchedBy(func(p []byte) bool {
					return bytes.Contains(p, []byte("agency plan is now active until 2026-04-09"))
				})).Return(100, nil).Once()
				writer.On("Close").Return(nil).Once()
				client.On("Quit").Return(nil).Once()
				client.On("Close").Return(nil).Once()
			},
		},
		{
			name:       "нечитаемое сообщение отбрасывается",
			body:       []byte(`invalid json`),
			setupMocks: func(_ *MockTransport) {},
		},
		{
			name:       "без адреса",
			body:       []byte(`{"kind":"plan_cancelled","user_id":"u-1"}`),
			setupMocks: func(_ *MockTransport) {},
		},
		{
			name:       "неизвестный тип",
			body:       []byte(`{"kind":"plan_gifted","email":"creator@example.com"}`),
			setupMocks: func(_ *MockTransport) {},
		},
		{
			name: "ошибка подключения к SMTP",
			body: []byte(`{"kind":"plan_downgraded","user_id":"u-1","email":"creator@example.com","tier":"free"}`),
			setupMocks: func(tr *MockTransport) {
				tr.On("From").Return("billing@shortsos.app")
				tr.On("Connect").Return(nil, errors.New("connection error")).Once()
			},
			expectedError: true,
			errorMessage:  "connection error",
		},
		{
			name: "получатель отклонён",
			body: []byte(`{"kind":"plan_downgraded","user_id":"u-1","email":"creator@example.com","tier":"free"}`),
			setupMocks: func(tr *MockTransport) {
				client := new(MockSMTPClient)
				tr.On("From").Return("billing@shortsos.app")
				tr.On("Connect").Return(client, nil).Once()
				client.On("Mail", "billing@shortsos.app").Return(nil).Once()
				client.On("Rcpt", "creator@example.com").Return(errors.New("550 mailbox unavailable")).Once()
				client.On("Close").Return(nil).Once()
			},
			expectedError: true,
			errorMessage:  "550 mailbox unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			sender := NewSender(transport, newNoopLogger())
			tt.setupMocks(transport)

			err := sender.HandleMessage(tt.body)

			if tt.expectedError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMessage)
			} else {
				assert.NoError(t, err)
			}
			transport.AssertExpectations(t)
		})
	}
}
