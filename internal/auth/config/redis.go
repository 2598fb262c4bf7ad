package config

import (
	"fmt"
	"time"
)

// RedisConfig представляет конфигурацию хранилища записей.
type RedisConfig struct {
	Host           string        `yaml:"host" env:"AUTH_REDIS_HOST" env-default:"localhost"`
	Port           int           `yaml:"port" env:"AUTH_REDIS_PORT" env-default:"6379"`
	Password       string        `yaml:"password" env:"AUTH_REDIS_PASSWORD" env-default:""`
	DB             int           `yaml:"db" env:"AUTH_REDIS_DB" env-default:"0"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"AUTH_REDIS_CONNECT_TIMEOUT" env-default:"5s"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"AUTH_REDIS_READ_TIMEOUT" env-default:"3s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"AUTH_REDIS_WRITE_TIMEOUT" env-default:"3s"`
	PoolSize       int           `yaml:"pool_size" env:"AUTH_REDIS_POOL_SIZE" env-default:"10"`
	MinIdle        int           `yaml:"min_idle" env:"AUTH_REDIS_MIN_IDLE" env-default:"2"`
}

// GetAddress возвращает адрес Redis.
func (c *RedisConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
