package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("Str0ng!Passw0rd")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.NoError(t, ComparePassword(hash, "Str0ng!Passw0rd"))
	assert.Error(t, ComparePassword(hash, "wrong-password"))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestConstantTimeEquals(t *testing.T) {
	assert.True(t, ConstantTimeEquals("abc123", "abc123"))
	assert.False(t, ConstantTimeEquals("abc123", "abc124"))
	assert.False(t, ConstantTimeEquals("abc123", ""))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Str0ng!Passw0rd", false},
		{"too short", "S1!a", true},
		{"no uppercase", "str0ng!passw0rd", true},
		{"no lowercase", "STR0NG!PASSW0RD", true},
		{"no digit", "Strong!Password", true},
		{"no special", "Str0ngPassw0rd", true},
		{"common", "password", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword_GenericMessage(t *testing.T) {
	err := ValidatePassword("weak")
	require.Error(t, err)
	assert.Equal(t, "invalid password", err.Error())
}
