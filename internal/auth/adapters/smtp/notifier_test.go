package smtp_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"megachess/internal/auth/adapters/smtp"
	"megachess/internal/auth/config"
)

func TestSendDisabledIsNoop(t *testing.T) {
	notifier := smtp.New(&config.SMTPConfig{Enabled: false})

	err := notifier.Send(context.Background(), "alice@example.com", "Subject", "<p>Body</p>")

	require.NoError(t, err, "disabled smtp must swallow the message without error")
}

func TestSendUnreachableServer(t *testing.T) {
	notifier := smtp.New(&config.SMTPConfig{
		Enabled:     true,
		Host:        "127.0.0.1",
		Port:        1, // nothing listens here
		FromName:    "Megachess",
		FromAddress: "noreply@megachess.local",
		DialTimeout: 100 * time.Millisecond,
	})

	err := notifier.Send(context.Background(), "alice@example.com", "Subject", "<p>Body</p>")

	require.Error(t, err)
	assert.Contains(t, err.Error(), smtp.ErrorFailedToSend)
}
