package config

import (
	"fmt"
	"time"
)

// SMTPConfig представляет конфигурацию отправки почты.
// При Enabled=false уведомления только логируются.
type SMTPConfig struct {
	Enabled     bool          `yaml:"enabled" env:"AUTH_SMTP_ENABLED" env-default:"false"`
	Host        string        `yaml:"host" env:"AUTH_SMTP_HOST" env-default:"localhost"`
	Port        int           `yaml:"port" env:"AUTH_SMTP_PORT" env-default:"587"`
	Username    string        `yaml:"username" env:"AUTH_SMTP_USERNAME" env-default:""`
	Password    string        `yaml:"password" env:"AUTH_SMTP_PASSWORD" env-default:""`
	FromName    string        `yaml:"from_name" env:"AUTH_SMTP_FROM_NAME" env-default:"Megachess"`
	FromAddress string        `yaml:"from_address" env:"AUTH_SMTP_FROM_ADDRESS" env-default:"noreply@megachess.local"`
	StartTLS    bool          `yaml:"starttls" env:"AUTH_SMTP_STARTTLS" env-default:"true"`
	DialTimeout time.Duration `yaml:"dial_timeout" env:"AUTH_SMTP_DIAL_TIMEOUT" env-default:"10s"`
}

// GetAddress возвращает адрес SMTP сервера.
func (c *SMTPConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
