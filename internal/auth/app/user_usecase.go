// Package app реализует сценарии использования сервиса учетных записей.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"megachess/internal/auth/domain/entities"
	"megachess/internal/auth/ports/api"
	"megachess/internal/auth/ports/repositories"
	svc "megachess/internal/auth/ports/services"
	"megachess/pkg/logger"
)

// Префиксы ключей в хранилище записей.
const (
	userKeyPrefix         = "user:"
	registrationKeyPrefix = "registration:"
	authTokenKeyPrefix    = "auth:"
)

// Темы и тела уведомлений.
const (
	confirmationSubject = "Welcome to Megachess!!"
	confirmationBodyFmt = `<p>Please confirm your email account</p><a href="%s/confirm_registration?token=%s">CONFIRM YOUR REGISTRATION</a>`
	authTokenSubject    = "Your account in Megachess is confirmed!!!"
	authTokenBodyFmt    = `<p>This is your personal auth_token to play for username %s</p><p><strong>%s</strong></p>`
)

const (
	methodValidateRegistration = "ValidateRegistration"
	methodRegister             = "Register"
	methodConfirmRegistration  = "ConfirmRegistration"
	methodGetAuthToken         = "GetAuthToken"
	methodGetUsernameByToken   = "GetUsernameByAuthToken"
	methodGetUserByUsername    = "GetUserByUsername"
	methodCreateUser           = "createUser"

	msgStartValidation        = "validating registration request"
	msgInvalidUsername        = "username contains non-letter characters"
	msgInvalidEmailFormat     = "invalid email format"
	msgUserExists             = "user already exists"
	msgStartRegistration      = "starting registration"
	msgAutoRegistration       = "auto-registration secret accepted"
	msgPendingSaved           = "pending registration saved"
	msgConfirmationMailFailed = "failed to send confirmation mail"
	msgStartConfirmation      = "confirming registration"
	msgUnknownRegToken        = "unknown or expired registration token"
	msgRegTokenConsumed       = "registration token already consumed"
	msgUserCreated            = "user created"
	msgAuthTokenMailFailed    = "failed to send auth token mail"
	msgLoginAttempt           = "auth token requested"
	msgInvalidPasswordAuth    = "password verification failed"
	msgTokenIssued            = "auth token issued"
	msgUnknownAuthToken       = "unknown auth token"
	msgCorruptedUserRecord    = "stored user record does not match lookup key"

	msgErrCheckExistingUser  = "failed to check existing user"
	msgErrHashPassword       = "failed to hash password"
	msgErrEncodeRecord       = "failed to encode record"
	msgErrSavePending        = "failed to save pending registration"
	msgErrReadPending        = "failed to read pending registration"
	msgErrDeletePending      = "failed to delete pending registration"
	msgErrDecodePending      = "failed to decode pending registration"
	msgErrSaveUser           = "failed to save user record"
	msgErrSaveTokenMapping   = "failed to save auth token mapping"
	msgErrReadUser           = "failed to read user record"
	msgErrDecodeUser         = "failed to decode user record"
	msgErrVerifyingPassword  = "error verifying password"
	msgErrReadAuthToken      = "failed to read auth token mapping"
	msgLoginNonExistent      = "auth token requested for non-existent user"
	msgErrCreateAutoUser     = "failed to create user on auto-registration"
	msgErrCreateConfirmUser  = "failed to create user on confirmation"
	msgDuplicateUserOnCreate = "user record appeared concurrently"

	errCtxValidatingUsername  = "validating username"
	errCtxValidatingEmail     = "validating email"
	errCtxCheckingUser        = "checking existing user"
	errCtxUserExists          = "user exists"
	errCtxHashingPassword     = "hashing password"
	errCtxEncodingRecord      = "encoding record"
	errCtxSavingPending       = "saving pending registration"
	errCtxReadingPending      = "reading pending registration"
	errCtxDecodingPending     = "decoding pending registration"
	errCtxDeletingPending     = "deleting pending registration"
	errCtxCreatingUser        = "creating user"
	errCtxSavingUser          = "saving user record"
	errCtxSavingTokenMapping  = "saving auth token mapping"
	errCtxReadingUser         = "reading user record"
	errCtxDecodingUser        = "decoding user record"
	errCtxRecordMismatch      = "record mismatch"
	errCtxVerifyingPassword   = "verifying password"
	errCtxInvalidCredentials  = "invalid credentials"
	errCtxReadingAuthToken    = "reading auth token mapping"
	errCtxInvalidAuthToken    = "invalid auth token"
	errCtxInvalidRegToken     = "invalid registration token"
	errCtxDuplicateRegistered = "username registered concurrently"
)

// Политики формата имени пользователя и email. Имя состоит только из букв
// (любой алфавит); email проверяется по форме local@domain.tld.
var (
	usernameRegex = regexp.MustCompile(`^\p{L}+$`)
	emailRegex    = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)
)

// Settings содержит параметры регистрационного процесса, передаваемые
// при конструировании сценария использования.
type Settings struct {
	// AutoRegisterSecret разрешает путь авторегистрации. Пустое значение
	// отключает его полностью.
	AutoRegisterSecret string

	// ConfirmationBaseURL - базовый URL для ссылки подтверждения.
	ConfirmationBaseURL string

	// PendingTTL - срок хранения неподтвержденной заявки.
	PendingTTL time.Duration
}

// UserUseCaseImpl реализует интерфейс UserUseCase.
type UserUseCaseImpl struct {
	store       repositories.RecordStore
	passwordSvc svc.PasswordService
	notifier    svc.Notifier
	settings    Settings
}

// NewUserUseCase создает новый экземпляр сценария учетных записей.
func NewUserUseCase(
	store repositories.RecordStore,
	passwordSvc svc.PasswordService,
	notifier svc.Notifier,
	settings Settings,
) api.UserUseCase {
	return &UserUseCaseImpl{
		store:       store,
		passwordSvc: passwordSvc,
		notifier:    notifier,
		settings:    settings,
	}
}

func userKey(username string) string {
	return userKeyPrefix + username
}

func registrationKey(token string) string {
	return registrationKeyPrefix + token
}

func authTokenKey(token string) string {
	return authTokenKeyPrefix + token
}

// ValidateRegistration проверяет имя пользователя, email и отсутствие
// подтвержденной учетной записи с таким именем.
func (u *UserUseCaseImpl) ValidateRegistration(ctx context.Context, username, email string) error {
	log := logger.Log(ctx).With(zap.String("method", methodValidateRegistration), zap.String("username", username))
	log.Debug(ctx, msgStartValidation)

	if !usernameRegex.MatchString(username) {
		log.Debug(ctx, msgInvalidUsername)
		return fmt.Errorf("%s: %w", errCtxValidatingUsername, entities.ErrInvalidUsername)
	}
	if !emailRegex.MatchString(email) {
		log.Debug(ctx, msgInvalidEmailFormat)
		return fmt.Errorf("%s: %w", errCtxValidatingEmail, entities.ErrInvalidEmail)
	}

	exists, err := u.store.Exists(ctx, userKey(username))
	if err != nil {
		log.Error(ctx, msgErrCheckExistingUser, zap.Error(err))
		return fmt.Errorf("%s: %w", errCtxCheckingUser, err)
	}
	if exists {
		log.Debug(ctx, msgUserExists)
		return fmt.Errorf("%s: %w", errCtxUserExists, entities.ErrUserAlreadyExists)
	}

	return nil
}

// Register создает заявку на регистрацию и отправляет письмо со ссылкой
// подтверждения. При совпадении autoRegisterSecret с настроенным секретом
// учетная запись создается сразу, минуя стадию подтверждения.
func (u *UserUseCaseImpl) Register(ctx context.Context, username, password, email, autoRegisterSecret string) error {
	log := logger.Log(ctx).With(zap.String("method", methodRegister), zap.String("username", username))
	log.Debug(ctx, msgStartRegistration)

	if err := u.ValidateRegistration(ctx, username, email); err != nil {
		return err
	}

	passwordHash, err := u.passwordSvc.Hash(ctx, password)
	if err != nil {
		log.Error(ctx, msgErrHashPassword, zap.Error(err))
		return fmt.Errorf("%s: %w", errCtxHashingPassword, err)
	}

	if autoRegisterSecret != "" && u.settings.AutoRegisterSecret != "" &&
		autoRegisterSecret == u.settings.AutoRegisterSecret {
		log.Info(ctx, msgAutoRegistration)
		if _, err := u.createUser(ctx, username, passwordHash, email); err != nil {
			log.Error(ctx, msgErrCreateAutoUser, zap.Error(err))
			return fmt.Errorf("%s: %w", errCtxCreatingUser, err)
		}
		return nil
	}

	registration := entities.PendingRegistration{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	}
	encoded, err := json.Marshal(registration)
	if err != nil {
		log.Error(ctx, msgErrEncodeRecord, zap.Error(err))
		return fmt.Errorf("%s: %w", errCtxEncodingRecord, err)
	}

	registrationToken := uuid.New().String()

	// Заявка должна быть сохранена до отправки письма: получатель письма
	// всегда может подтвердить регистрацию.
	if err := u.store.SetWithTTL(ctx, registrationKey(registrationToken), string(encoded), u.settings.PendingTTL); err != nil {
		log.Error(ctx, msgErrSavePending, zap.Error(err))
		return fmt.Errorf("%s: %w", errCtxSavingPending, err)
	}

	log.Info(ctx, msgPendingSaved)

	body := fmt.Sprintf(confirmationBodyFmt, u.settings.ConfirmationBaseURL, registrationToken)
	if err := u.notifier.Send(ctx, email, confirmationSubject, body); err != nil {
		// Доставка best-effort: ошибка отправки не отменяет регистрацию.
		log.Warn(ctx, msgConfirmationMailFailed, zap.Error(err))
	}

	return nil
}

// ConfirmRegistration обменивает одноразовый регистрационный токен на
// подтвержденную учетную запись. Токен удаляется до создания записи;
// из двух одновременных подтверждений успешным будет не более одного.
func (u *UserUseCaseImpl) ConfirmRegistration(ctx context.Context, registrationToken string) error {
	log := logger.Log(ctx).With(zap.String("method", methodConfirmRegistration))
	log.Debug(ctx, msgStartConfirmation)

	encoded, err := u.store.Get(ctx, registrationKey(registrationToken))
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			log.Debug(ctx, msgUnknownRegToken)
			return fmt.Errorf("%s: %w", errCtxInvalidRegToken, entities.ErrInvalidRegistrationToken)
		}
		log.Error(ctx, msgErrReadPending, zap.Error(err))
		return fmt.Errorf("%s: %w", errCtxReadingPending, err)
	}

	var registration entities.PendingRegistration
	if err := json.Unmarshal([]byte(encoded), &registration); err != nil {
		log.Error(ctx, msgErrDecodePending, zap.Error(err))
		return fmt.Errorf("%s: %w", errCtxDecodingPending, entities.ErrInvalidRegistrationToken)
	}

	existed, err := u.store.Delete(ctx, registrationKey(registrationToken))
	if err != nil {
		log.Error(ctx, msgErrDeletePending, zap.Error(err))
		return fmt.Errorf("%s: %w", errCtxDeletingPending, err)
	}
	if !existed {
		// Параллельное подтверждение уже использовало токен.
		log.Debug(ctx, msgRegTokenConsumed)
		return fmt.Errorf("%s: %w", errCtxInvalidRegToken, entities.ErrInvalidRegistrationToken)
	}

	log = log.With(zap.String("username", registration.Username))

	if _, err := u.createUser(ctx, registration.Username, registration.PasswordHash, registration.Email); err != nil {
		log.Error(ctx, msgErrCreateConfirmUser, zap.Error(err))
		return fmt.Errorf("%s: %w", errCtxCreatingUser, err)
	}

	return nil
}

// createUser создает запись пользователя и индекс auth-токена. Запись
// пользователя пишется первой: читатель, увидевший индекс, всегда найдет
// пользователя. Частично выполненная запись не откатывается.
func (u *UserUseCaseImpl) createUser(ctx context.Context, username, passwordHash, email string) (string, error) {
	log := logger.Log(ctx).With(zap.String("method", methodCreateUser), zap.String("username", username))

	authToken := uuid.New().String()
	user := entities.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		AuthToken:    authToken,
	}
	encoded, err := json.Marshal(user)
	if err != nil {
		log.Error(ctx, msgErrEncodeRecord, zap.Error(err))
		return "", fmt.Errorf("%s: %w", errCtxEncodingRecord, err)
	}

	created, err := u.store.SetIfAbsent(ctx, userKey(username), string(encoded))
	if err != nil {
		log.Error(ctx, msgErrSaveUser, zap.Error(err))
		return "", fmt.Errorf("%s: %w", errCtxSavingUser, err)
	}
	if !created {
		log.Debug(ctx, msgDuplicateUserOnCreate)
		return "", fmt.Errorf("%s: %w", errCtxDuplicateRegistered, entities.ErrUserAlreadyExists)
	}

	if err := u.store.Set(ctx, authTokenKey(authToken), username); err != nil {
		log.Error(ctx, msgErrSaveTokenMapping, zap.Error(err))
		return "", fmt.Errorf("%s: %w", errCtxSavingTokenMapping, err)
	}

	log.Info(ctx, msgUserCreated)

	// Единственный момент, когда пользователь узнает свой auth-токен.
	body := fmt.Sprintf(authTokenBodyFmt, username, authToken)
	if err := u.notifier.Send(ctx, email, authTokenSubject, body); err != nil {
		log.Warn(ctx, msgAuthTokenMailFailed, zap.Error(err))
	}

	return authToken, nil
}

// GetAuthToken возвращает auth-токен пользователя после проверки пароля.
func (u *UserUseCaseImpl) GetAuthToken(ctx context.Context, username, password string) (string, error) {
	log := logger.Log(ctx).With(zap.String("method", methodGetAuthToken), zap.String("username", username))
	log.Debug(ctx, msgLoginAttempt)

	user, err := u.GetUserByUsername(ctx, username)
	if err != nil {
		return "", err
	}

	valid, err := u.passwordSvc.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		// Испорченный хэш равнозначен провалу аутентификации, а не сбою.
		log.Error(ctx, msgErrVerifyingPassword, zap.Error(err))
		return "", fmt.Errorf("%s: %w", errCtxVerifyingPassword, entities.ErrInvalidCredentials)
	}
	if !valid {
		log.Debug(ctx, msgInvalidPasswordAuth)
		return "", fmt.Errorf("%s: %w", errCtxInvalidCredentials, entities.ErrInvalidCredentials)
	}

	log.Info(ctx, msgTokenIssued)
	return user.AuthToken, nil
}

// GetUsernameByAuthToken возвращает имя пользователя, связанное с токеном.
// Горячий путь: читается только скалярный индекс, без записи пользователя.
func (u *UserUseCaseImpl) GetUsernameByAuthToken(ctx context.Context, authToken string) (string, error) {
	log := logger.Log(ctx).With(zap.String("method", methodGetUsernameByToken))

	username, err := u.store.Get(ctx, authTokenKey(authToken))
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			log.Debug(ctx, msgUnknownAuthToken)
			return "", fmt.Errorf("%s: %w", errCtxInvalidAuthToken, entities.ErrInvalidAuthToken)
		}
		log.Error(ctx, msgErrReadAuthToken, zap.Error(err))
		return "", fmt.Errorf("%s: %w", errCtxReadingAuthToken, err)
	}

	return username, nil
}

// GetUserByUsername возвращает полную запись пользователя. Запись, чье
// имя не совпадает с ключом поиска, считается испорченной.
func (u *UserUseCaseImpl) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	log := logger.Log(ctx).With(zap.String("method", methodGetUserByUsername), zap.String("username", username))

	encoded, err := u.store.Get(ctx, userKey(username))
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			log.Debug(ctx, msgLoginNonExistent)
			return nil, fmt.Errorf("%s: %w", errCtxInvalidCredentials, entities.ErrInvalidCredentials)
		}
		log.Error(ctx, msgErrReadUser, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", errCtxReadingUser, err)
	}

	var user entities.User
	if err := json.Unmarshal([]byte(encoded), &user); err != nil {
		log.Error(ctx, msgErrDecodeUser, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", errCtxDecodingUser, entities.ErrCorruptedRecord)
	}

	if user.Username != username {
		log.Error(ctx, msgCorruptedUserRecord, zap.String("stored_username", user.Username))
		return nil, fmt.Errorf("%s: %w", errCtxRecordMismatch, entities.ErrCorruptedRecord)
	}

	return &user, nil
}
