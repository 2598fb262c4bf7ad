package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cryptobcrypt "golang.org/x/crypto/bcrypt"

	"megachess/internal/auth/adapters/services"
)

const (
	msgHashNotPlaintext   = "hash must not contain the plaintext password"
	msgHashesDiffer       = "repeated hashing must produce different hashes"
	msgVerifySuccess      = "should successfully verify correct password"
	msgVerifyWrong        = "should return false for wrong password without error"
	msgVerifyMalformed    = "should return error for malformed hash"
	msgNotMismatchedError = "error should not be err mismatched hash and password"
)

func TestHashProducesSaltedHashes(t *testing.T) {
	service := services.NewBcrypt(cryptobcrypt.MinCost)
	ctx := context.Background()

	hash1, err := service.Hash(ctx, "Passw0rd!")
	require.NoError(t, err)
	hash2, err := service.Hash(ctx, "Passw0rd!")
	require.NoError(t, err)

	assert.NotContains(t, hash1, "Passw0rd!", msgHashNotPlaintext)
	assert.NotEqual(t, hash1, hash2, msgHashesDiffer)
}

func TestVerifySuccess(t *testing.T) {
	service := services.NewBcrypt(cryptobcrypt.MinCost)
	ctx := context.Background()

	hash, err := service.Hash(ctx, "Passw0rd!")
	require.NoError(t, err)

	result, err := service.Verify(ctx, "Passw0rd!", hash)

	require.NoError(t, err, msgVerifySuccess)
	assert.True(t, result, msgVerifySuccess)
}

func TestVerifyWrongPassword(t *testing.T) {
	service := services.NewBcrypt(cryptobcrypt.MinCost)
	ctx := context.Background()

	hash, err := service.Hash(ctx, "Passw0rd!")
	require.NoError(t, err)

	result, err := service.Verify(ctx, "wrongpass", hash)

	require.NoError(t, err, msgVerifyWrong)
	assert.False(t, result, msgVerifyWrong)
}

func TestVerifyMalformedHash(t *testing.T) {
	service := services.NewBcrypt(cryptobcrypt.MinCost)
	ctx := context.Background()

	result, err := service.Verify(ctx, "Passw0rd!", "not_a_bcrypt_hash")

	require.Error(t, err, msgVerifyMalformed)
	assert.False(t, result)
	require.NotErrorIs(t, err, cryptobcrypt.ErrMismatchedHashAndPassword, msgNotMismatchedError)
}

func TestNewBcryptClampsInvalidCost(t *testing.T) {
	service := services.NewBcrypt(-1)
	ctx := context.Background()

	hash, err := service.Hash(ctx, "Passw0rd!")
	require.NoError(t, err)

	result, err := service.Verify(ctx, "Passw0rd!", hash)
	require.NoError(t, err)
	assert.True(t, result)
}
