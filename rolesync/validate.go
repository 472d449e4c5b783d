package rolesync

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	auth "github.com/tokenestate/go-estate-auth"
	"github.com/tokenestate/go-estate-auth/chain"
)

// Validate checks the request before any transaction is sent.
func (r Request) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required.Error("backend user id is required")),
		validation.Field(&r.Grantee,
			validation.Required.Error("grantee address is required"),
			validation.By(grantee),
		),
		validation.Field(&r.Role,
			validation.Required.Error("role type is required"),
			validation.By(roleType),
		),
		validation.Field(&r.Properties,
			validation.Required.Error("select at least one property"),
			validation.By(uniqueProperties),
		),
	)
	if err != nil {
		return auth.NewKindError(auth.ErrValidation, err, err.Error(), map[string]any{
			"user_id": r.UserID,
			"role":    string(r.Role),
		})
	}
	return nil
}

func grantee(value any) error {
	s, _ := value.(string)
	if !chain.ValidAddress(s) {
		return errors.New("must be a 0x prefixed 20 byte address")
	}
	return nil
}

func roleType(value any) error {
	r, _ := value.(chain.RoleType)
	if !r.IsValid() {
		return fmt.Errorf("unknown role type %q", string(r))
	}
	return nil
}

func uniqueProperties(value any) error {
	props, _ := value.([]PropertyRef)
	seen := make(map[uint64]struct{}, len(props))
	for _, p := range props {
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("property %d selected twice", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}
