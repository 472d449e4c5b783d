package auth

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/hashid/pkg/hashid"
)

// IdentityPrefix every wallet address and signature carries.
const IdentityPrefix = "0x"

// MinIdentityLength is the length of a hex wallet address (0x + 40 nibbles).
const MinIdentityLength = 42

var hexIdentity = regexp.MustCompile(`^0[xX][0-9a-fA-F]+$`)

// NormalizeIdentity trims surrounding whitespace from a token.
func NormalizeIdentity(token string) string {
	return strings.TrimSpace(token)
}

// ValidateIdentity checks the shape of an identity token: a 0x prefixed hex
// string at least as long as a wallet address. Failures are ErrValidation.
func ValidateIdentity(token string) error {
	token = NormalizeIdentity(token)
	err := validation.Validate(token,
		validation.Required.Error("identity token is required"),
		validation.By(requirePrefix(IdentityPrefix)),
		validation.RuneLength(MinIdentityLength, 0).Error(
			fmt.Sprintf("identity token must be at least %d characters", MinIdentityLength),
		),
		validation.Match(hexIdentity).Error("identity token must be hex encoded"),
	)
	if err != nil {
		return NewKindError(ErrValidation, err, err.Error(), map[string]any{
			"length": len(token),
		})
	}
	return nil
}

func requirePrefix(prefix string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if !strings.HasPrefix(strings.ToLower(s), prefix) {
			return fmt.Errorf("identity token must start with %q", prefix)
		}
		return nil
	}
}

// DisplayNameFor derives the default display name for a wallet, e.g.
// "User 0x1234...abcd". The result depends on the token only.
func DisplayNameFor(token string) string {
	token = NormalizeIdentity(token)
	if len(token) <= 10 {
		return "User " + token
	}
	return fmt.Sprintf("User %s...%s", token[:6], token[len(token)-4:])
}

// ProvisionKey is a deterministic idempotency key for auto-provisioning the
// given wallet. Wallet case is ignored.
func ProvisionKey(token string) string {
	id, err := hashid.NewUUID(strings.ToLower(NormalizeIdentity(token)))
	if err != nil {
		return ""
	}
	return id.String()
}
