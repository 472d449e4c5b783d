package auth_test

import (
	"strings"
	"testing"

	auth "github.com/tokenestate/go-estate-auth"
	"github.com/stretchr/testify/assert"
)

func TestValidateIdentity(t *testing.T) {
	tests := []struct {
		name  string
		token string
		ok    bool
	}{
		{"wallet", testWallet, true},
		{"uppercase prefix", "0X" + strings.Repeat("A", 40), true},
		{"padded", "  " + testWallet + "\n", true},
		{"signature", "0x" + strings.Repeat("ab", 65), true},
		{"empty", "", false},
		{"no prefix", strings.Repeat("a", 42), false},
		{"too short", "0x1234", false},
		{"not hex", "0x" + strings.Repeat("z", 40), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidateIdentity(tt.token)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.True(t, auth.IsValidation(err))
			assert.ErrorIs(t, err, auth.ErrValidation)
		})
	}
}

func TestDisplayNameFor(t *testing.T) {
	assert.Equal(t, "User 0x1234...5678", auth.DisplayNameFor(testWallet))
	assert.Equal(t, "User 0xabc", auth.DisplayNameFor("0xabc"))
	assert.Equal(t, auth.DisplayNameFor(testWallet), auth.DisplayNameFor(testWallet))
}

func TestProvisionKeyIsDeterministic(t *testing.T) {
	key := auth.ProvisionKey(testWallet)
	assert.NotEmpty(t, key)
	assert.Equal(t, key, auth.ProvisionKey(strings.ToUpper(testWallet[:2])+strings.ToUpper(testWallet[2:])))
	assert.NotEqual(t, key, auth.ProvisionKey(otherWallet))
}
