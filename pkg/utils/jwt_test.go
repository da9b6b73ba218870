package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTokenCarriesTenant(t *testing.T) {
	SetSecret("test-secret")

	token, err := GenerateToken("user-1", "tenant-1", []string{"ADMIN"}, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, []string{"ADMIN"}, claims.Roles)
}

func TestValidateTokenRejectsExpiredAndForeign(t *testing.T) {
	SetSecret("test-secret")

	expired, err := GenerateToken("user-1", "tenant-1", nil, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken(expired)
	assert.Error(t, err)

	SetSecret("other-secret")
	foreign, err := GenerateToken("user-1", "tenant-1", nil, time.Hour)
	require.NoError(t, err)
	SetSecret("test-secret")
	_, err = ValidateToken(foreign)
	assert.Error(t, err)
}
