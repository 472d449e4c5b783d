package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// RoleType names an access-control role on a property contract.
type RoleType string

const (
	RoleManager   RoleType = "MANAGER_ROLE"
	RoleAdmin     RoleType = "ADMIN_ROLE"
	RoleValidator RoleType = "VALIDATOR_ROLE"
)

// RoleTypes lists the grantable roles
func RoleTypes() []RoleType {
	return []RoleType{RoleManager, RoleAdmin, RoleValidator}
}

// IsValid reports whether r is a grantable role.
func (r RoleType) IsValid() bool {
	switch r {
	case RoleManager, RoleAdmin, RoleValidator:
		return true
	default:
		return false
	}
}

// ParseRoleType accepts the on-chain constant name in any case.
func ParseRoleType(s string) (RoleType, bool) {
	r := RoleType(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// ID is the bytes32 identifier the contract uses for the role.
func (r RoleType) ID() [32]byte {
	return RoleID(string(r))
}

// RoleID is keccak256 of the role name, as computed by Solidity's
// keccak256("MANAGER_ROLE").
func RoleID(name string) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(name))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// RoleHash is RoleID as a common.Hash
func RoleHash(name string) common.Hash {
	return common.Hash(RoleID(name))
}

// ValidAddress reports whether s is a 0x prefixed 20 byte hex address.
func ValidAddress(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(strings.ToLower(s), "0x") && common.IsHexAddress(s)
}
