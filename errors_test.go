package auth_test

import (
	"errors"
	"fmt"
	"testing"

	auth "github.com/tokenestate/go-estate-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindErrorsKeepSentinelAndCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := auth.NetworkError(cause, "backend unreachable")

	assert.True(t, auth.IsNetwork(err))
	assert.False(t, auth.IsNotFound(err))
	assert.ErrorIs(t, err, auth.ErrNetwork)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, auth.TextCodeNetwork, auth.ErrorKind(err))
}

func TestKindErrorsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("login: %w", auth.NotFoundError(nil, "no such wallet"))
	assert.True(t, auth.IsNotFound(err))
	assert.Equal(t, auth.TextCodeNotFound, auth.ErrorKind(err))
}

func TestErrorKindUnknown(t *testing.T) {
	assert.Equal(t, "unknown", auth.ErrorKind(errors.New("boom")))
	assert.Equal(t, "", auth.ErrorKind(nil))
}

func TestProvisionErrorUnwrapsBothCauses(t *testing.T) {
	original := auth.NotFoundError(nil, "unknown wallet")
	create := auth.NetworkError(errors.New("timeout"), "create failed")

	err := error(&auth.ProvisionError{Wallet: testWallet, Original: original, Create: create})

	var perr *auth.ProvisionError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.ErrorIs(t, err, auth.ErrNetwork)
	assert.Contains(t, err.Error(), "create user")
	assert.Contains(t, err.Error(), "original login")
	assert.Equal(t, auth.TextCodeProvisionFailed, auth.ErrorKind(err))

	meta := perr.Metadata()
	assert.Equal(t, testWallet, meta["wallet"])
	assert.NotContains(t, meta, "retry")
}
