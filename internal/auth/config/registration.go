package config

import "time"

// RegistrationConfig содержит настройки регистрационного процесса.
// Секрет авторегистрации и базовый URL подтверждения передаются
// сценарию использования при конструировании, а не читаются из
// окружения в момент вызова.
type RegistrationConfig struct {
	// AutoRegisterSecret разрешает создание учетной записи в обход
	// подтверждения email. Пустое значение отключает обходной путь.
	AutoRegisterSecret string `yaml:"auto_register_secret" env:"AUTH_AUTO_REGISTER_SECRET" env-default:""`

	// BaseURL используется для построения ссылки подтверждения в письме.
	BaseURL string `yaml:"base_url" env:"AUTH_CONFIRMATION_BASE_URL" env-default:"http://localhost:8080"`

	// PendingTTL определяет срок хранения неподтвержденной заявки.
	PendingTTL time.Duration `yaml:"pending_ttl" env:"AUTH_REGISTRATION_PENDING_TTL" env-default:"24h"`

	// BCryptCost задает стоимость хеширования пароля.
	BCryptCost int `yaml:"bcrypt_cost" env:"AUTH_BCRYPT_COST" env-default:"10"`
}
