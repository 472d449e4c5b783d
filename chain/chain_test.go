package chain

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auth "github.com/tokenestate/go-estate-auth"
)

const (
	grantee     = "0x1234567890abcdef1234567890abcdef12345678"
	registry    = "0x00000000000000000000000000000000000000aa"
	testKeyHex  = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"
	testKeyAddr = "0x71562b71999873DB5b286dF957af199Ec94617F7"
)

func TestRoleIDIsKeccakOfName(t *testing.T) {
	for _, role := range RoleTypes() {
		assert.Equal(t, crypto.Keccak256Hash([]byte(role)), common.Hash(role.ID()), string(role))
		assert.Equal(t, common.Hash(role.ID()), RoleHash(string(role)))
	}
	assert.NotEqual(t, RoleManager.ID(), RoleAdmin.ID())
}

func TestParseRoleType(t *testing.T) {
	r, ok := ParseRoleType(" manager_role ")
	assert.True(t, ok)
	assert.Equal(t, RoleManager, r)

	_, ok = ParseRoleType("OWNER_ROLE")
	assert.False(t, ok)
}

func TestValidAddress(t *testing.T) {
	assert.True(t, ValidAddress(grantee))
	assert.False(t, ValidAddress("1234567890abcdef1234567890abcdef12345678"))
	assert.False(t, ValidAddress("0x1234"))
	assert.False(t, ValidAddress(""))
}

func TestABIsExposeExpectedMethods(t *testing.T) {
	for _, name := range []string{"getPropertyCount", "getProperty"} {
		assert.Contains(t, RegistryABI().Methods, name)
	}
	for _, name := range []string{"grantRole", "hasRole"} {
		assert.Contains(t, AccessControlABI().Methods, name)
	}

	data, err := AccessControlABI().Pack("grantRole", RoleManager.ID(), common.HexToAddress(grantee))
	require.NoError(t, err)
	assert.Len(t, data, 4+32+32)
}

func TestDecodeProperty(t *testing.T) {
	token := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	access := common.HexToAddress("0x00000000000000000000000000000000000000cc")

	p, err := decodeProperty(3, []any{"Loft", token, access, true})
	require.NoError(t, err)
	assert.Equal(t, Property{ID: 3, Name: "Loft", Token: token, AccessControl: access, Active: true}, p)

	_, err = decodeProperty(3, []any{"Loft"})
	assert.True(t, auth.IsNetwork(err))

	_, err = decodeProperty(3, []any{"Loft", "nope", access, true})
	assert.Error(t, err)
}

func TestNewSigner(t *testing.T) {
	signer, err := NewSigner("0x"+testKeyHex, 1337)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testKeyAddr), signer.From)

	_, err = NewSigner("zz", 1)
	assert.True(t, auth.IsValidation(err))
}

func TestNewClientRejectsBadRegistry(t *testing.T) {
	_, err := NewClient(nil, "registry")
	assert.True(t, auth.IsValidation(err))
}

func TestGrantRoleValidatesBeforeTouchingTheChain(t *testing.T) {
	c, err := NewClient(nil, registry, WithLogger(auth.NopLogger()))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.GrantRole(ctx, 1, RoleType("OWNER_ROLE"), grantee)
	assert.True(t, auth.IsValidation(err))

	_, err = c.GrantRole(ctx, 1, RoleManager, "0xnope")
	assert.True(t, auth.IsValidation(err))

	_, err = c.GrantRole(ctx, 1, RoleManager, grantee)
	assert.True(t, auth.IsChainTransaction(err), "no signer configured")
	assert.Equal(t, common.Address{}, c.SignerAddress())
}

func TestWithSigner(t *testing.T) {
	signer, err := NewSigner(testKeyHex, 1337)
	require.NoError(t, err)
	signer.GasLimit = 100000

	c, err := NewClient(nil, registry, WithSigner(signer))
	require.NoError(t, err)
	assert.Equal(t, signer.From, c.SignerAddress())
}
