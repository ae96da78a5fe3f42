package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgotpw/secretsvc/internal/common"
)

var testKey = []byte("test-signing-key")

func TestGenerateAndVerify(t *testing.T) {
	token, err := GenerateToken("fpw-authorizedrequests", testKey, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	service, err := ServiceFromToken(token, testKey)
	require.NoError(t, err)
	assert.Equal(t, "fpw-authorizedrequests", service)
}

func TestServiceFromToken_WrongKey(t *testing.T) {
	token, err := GenerateToken("fpw-authorizedrequests", testKey, time.Minute)
	require.NoError(t, err)

	_, err = ServiceFromToken(token, []byte("other-key"))
	assert.ErrorIs(t, err, common.ErrorCredentialInvalid)
}

func TestServiceFromToken_Expired(t *testing.T) {
	token, err := GenerateToken("fpw-authorizedrequests", testKey, -time.Minute)
	require.NoError(t, err)

	_, err = ServiceFromToken(token, testKey)
	assert.ErrorIs(t, err, common.ErrorCredentialInvalid)
}

func TestServiceFromToken_Garbage(t *testing.T) {
	_, err := ServiceFromToken("not.a.token", testKey)
	assert.ErrorIs(t, err, common.ErrorCredentialInvalid)
}

func TestServiceFromToken_EmptyServiceClaim(t *testing.T) {
	token, err := GenerateToken("", testKey, time.Minute)
	require.NoError(t, err)

	_, err = ServiceFromToken(token, testKey)
	assert.ErrorIs(t, err, common.ErrorCredentialInvalid)
}
