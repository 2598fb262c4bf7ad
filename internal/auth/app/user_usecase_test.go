package app_test

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"megachess/internal/auth/adapters/redisstore"
	"megachess/internal/auth/adapters/services"
	"megachess/internal/auth/app"
	"megachess/internal/auth/config"
	"megachess/internal/auth/domain/entities"
	"megachess/internal/auth/ports/api"
)

const (
	testSecret  = "auto-secret"
	testBaseURL = "http://megachess.local"
)

var tokenRegex = regexp.MustCompile(`token=([0-9a-f-]+)`)

type sentMail struct {
	Address string
	Subject string
	Body    string
}

// mailSpy записывает отправленные уведомления вместо реальной доставки.
type mailSpy struct {
	mu       sync.Mutex
	messages []sentMail
	err      error
}

func (m *mailSpy) Send(_ context.Context, address, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, sentMail{Address: address, Subject: subject, Body: body})
	return nil
}

func (m *mailSpy) sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.messages...)
}

func (m *mailSpy) confirmationToken(t *testing.T) string {
	t.Helper()
	for _, msg := range m.sent() {
		if match := tokenRegex.FindStringSubmatch(msg.Body); match != nil {
			return match[1]
		}
	}
	t.Fatal("no confirmation link found in sent mail")
	return ""
}

func keysWithPrefix(s *miniredis.Miniredis, prefix string) []string {
	var matched []string
	for _, key := range s.Keys() {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
	}
	return matched
}

type fixture struct {
	redis    *miniredis.Miniredis
	store    *redisstore.Store
	notifier *mailSpy
	useCase  api.UserUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	host, portStr, _ := strings.Cut(s.Addr(), ":")
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	store, err := redisstore.New(context.Background(), &config.RedisConfig{
		Host:           host,
		Port:           port,
		ConnectTimeout: 2 * time.Second,
		ReadTimeout:    time.Second,
		WriteTimeout:   time.Second,
		PoolSize:       5,
		MinIdle:        1,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})

	notifier := &mailSpy{}
	useCase := app.NewUserUseCase(store, services.NewBcrypt(bcrypt.MinCost), notifier, app.Settings{
		AutoRegisterSecret:  testSecret,
		ConfirmationBaseURL: testBaseURL,
		PendingTTL:          24 * time.Hour,
	})

	return &fixture{redis: s, store: store, notifier: notifier, useCase: useCase}
}

func TestValidateRegistrationUsernamePolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invalid := []string{"alice1", "al_ice", "alice bob", "alice!", "123", "", "a.b"}
	for _, username := range invalid {
		err := f.useCase.ValidateRegistration(ctx, username, "alice@example.com")
		assert.ErrorIs(t, err, entities.ErrInvalidUsername, "username %q must be rejected", username)
	}

	valid := []string{"alice", "ALICE", "Алиса"}
	for _, username := range valid {
		err := f.useCase.ValidateRegistration(ctx, username, "alice@example.com")
		assert.NoError(t, err, "username %q must be accepted", username)
	}
}

func TestValidateRegistrationEmailPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invalid := []string{"", "alice", "alice@example", "@example.com", "alice@", "alice.example.com"}
	for _, email := range invalid {
		err := f.useCase.ValidateRegistration(ctx, "alice", email)
		assert.ErrorIs(t, err, entities.ErrInvalidEmail, "email %q must be rejected", email)
	}

	err := f.useCase.ValidateRegistration(ctx, "alice", "alice@example.com")
	assert.NoError(t, err)
}

func TestRegisterRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.useCase.Register(ctx, "alice", "Passw0rd!", "alice@example.com", ""))

	// Пользователь еще не создан, письмо со ссылкой отправлено.
	sent := f.notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@example.com", sent[0].Address)
	assert.Contains(t, sent[0].Body, testBaseURL+"/confirm_registration?token=")
	assert.False(t, f.redis.Exists("user:alice"))

	token := f.notifier.confirmationToken(t)
	require.NoError(t, f.useCase.ConfirmRegistration(ctx, token))

	authToken, err := f.useCase.GetAuthToken(ctx, "alice", "Passw0rd!")
	require.NoError(t, err)
	require.NotEmpty(t, authToken)

	username, err := f.useCase.GetUsernameByAuthToken(ctx, authToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	// Второе письмо доставляет auth-токен.
	sent = f.notifier.sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[1].Body, authToken)

	user, err := f.useCase.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, authToken, user.AuthToken)
	assert.NotContains(t, user.PasswordHash, "Passw0rd!")
}

func TestConfirmRegistrationSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.useCase.Register(ctx, "alice", "Passw0rd!", "alice@example.com", ""))
	token := f.notifier.confirmationToken(t)

	require.NoError(t, f.useCase.ConfirmRegistration(ctx, token))

	err := f.useCase.ConfirmRegistration(ctx, token)
	assert.ErrorIs(t, err, entities.ErrInvalidRegistrationToken)
}

func TestConfirmRegistrationUnknownToken(t *testing.T) {
	f := newFixture(t)

	err := f.useCase.ConfirmRegistration(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, entities.ErrInvalidRegistrationToken)
}

func TestConfirmRegistrationConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.useCase.Register(ctx, "alice", "Passw0rd!", "alice@example.com", ""))
	token := f.notifier.confirmationToken(t)

	const attempts = 8
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.useCase.ConfirmRegistration(ctx, token)
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, entities.ErrInvalidRegistrationToken)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent confirmation may succeed")
}

func TestAutoRegistration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.useCase.Register(ctx, "bob", "pw", "b@e.com", testSecret))

	// Учетная запись создана сразу, без заявки и без письма-подтверждения.
	assert.True(t, f.redis.Exists("user:bob"))
	assert.Empty(t, keysWithPrefix(f.redis, "registration:"))

	sent := f.notifier.sent()
	require.Len(t, sent, 1)
	assert.NotContains(t, sent[0].Body, "CONFIRM YOUR REGISTRATION")

	authToken, err := f.useCase.GetAuthToken(ctx, "bob", "pw")
	require.NoError(t, err)
	assert.Contains(t, sent[0].Body, authToken)
}

func TestAutoRegistrationWrongSecret(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.useCase.Register(ctx, "bob", "pw", "b@e.com", "wrong-secret"))

	// Несовпавший секрет идет обычным путем подтверждения.
	assert.False(t, f.redis.Exists("user:bob"))
	require.Len(t, f.notifier.sent(), 1)
	assert.Contains(t, f.notifier.sent()[0].Body, "CONFIRM YOUR REGISTRATION")
}

func TestRegisterDuplicateAfterConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.useCase.Register(ctx, "alice", "Passw0rd!", "alice@example.com", testSecret))

	err := f.useCase.Register(ctx, "alice", "Other1pass", "other@example.com", "")
	assert.ErrorIs(t, err, entities.ErrUserAlreadyExists)
}

func TestGetAuthTokenWrongPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.useCase.Register(ctx, "alice", "Passw0rd!", "alice@example.com", testSecret))

	storedBefore, err := f.redis.Get("user:alice")
	require.NoError(t, err)

	_, err = f.useCase.GetAuthToken(ctx, "alice", "wrongpass")
	assert.ErrorIs(t, err, entities.ErrInvalidCredentials)

	storedAfter, err := f.redis.Get("user:alice")
	require.NoError(t, err)
	assert.Equal(t, storedBefore, storedAfter, "failed login must not touch the stored record")
}

func TestGetAuthTokenUnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.useCase.GetAuthToken(context.Background(), "nobody", "pw")
	assert.ErrorIs(t, err, entities.ErrInvalidCredentials)
}

func TestGetAuthTokenMalformedStoredHash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.redis.Set("user:mallory",
		`{"username":"mallory","email":"m@e.com","password_hash":"garbage","auth_token":"tok"}`))

	_, err := f.useCase.GetAuthToken(ctx, "mallory", "pw")
	assert.ErrorIs(t, err, entities.ErrInvalidCredentials, "malformed hash must fail auth, not crash")
}

func TestPendingRegistrationExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.useCase.Register(ctx, "alice", "Passw0rd!", "alice@example.com", ""))
	token := f.notifier.confirmationToken(t)

	f.redis.FastForward(25 * time.Hour)

	err := f.useCase.ConfirmRegistration(ctx, token)
	assert.ErrorIs(t, err, entities.ErrInvalidRegistrationToken)
	assert.False(t, f.redis.Exists("user:alice"))
}

func TestGetUsernameByUnknownAuthToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.useCase.GetUsernameByAuthToken(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, entities.ErrInvalidAuthToken)
}

func TestGetUserByUsernameCorruptedRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("username mismatch", func(t *testing.T) {
		require.NoError(t, f.redis.Set("user:alice",
			`{"username":"eve","email":"e@e.com","password_hash":"h","auth_token":"tok"}`))

		_, err := f.useCase.GetUserByUsername(ctx, "alice")
		assert.ErrorIs(t, err, entities.ErrCorruptedRecord)
		assert.ErrorIs(t, err, entities.ErrInvalidCredentials)
	})

	t.Run("undecodable record", func(t *testing.T) {
		require.NoError(t, f.redis.Set("user:broken", "not json"))

		_, err := f.useCase.GetUserByUsername(ctx, "broken")
		assert.ErrorIs(t, err, entities.ErrCorruptedRecord)
	})
}

func TestRegisterNotifierFailureIsBestEffort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.notifier.err = errors.New("smtp down")

	require.NoError(t, f.useCase.Register(ctx, "alice", "Passw0rd!", "alice@example.com", ""),
		"notification failure must not fail registration")
	assert.Len(t, keysWithPrefix(f.redis, "registration:"), 1, "pending registration must be persisted")
}
