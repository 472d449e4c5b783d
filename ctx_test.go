package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccessFromContext(t *testing.T) {
	tests := []struct {
		name     string
		setupCtx func() context.Context
		wantAuth bool
		wantRole Role
	}{
		{
			name: "should return stored access",
			setupCtx: func() context.Context {
				access := NewAccess(&User{ID: "1", Role: RoleManager}, true)
				return WithAccessContext(context.Background(), access)
			},
			wantAuth: true,
			wantRole: RoleManager,
		},
		{
			name: "should return anonymous when missing",
			setupCtx: func() context.Context {
				return context.Background()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			access := AccessFromContext(tt.setupCtx())
			assert.Equal(t, tt.wantAuth, access.IsAuthenticated)
			assert.Equal(t, tt.wantRole, access.Role())
		})
	}
}

func TestWithAccessContextStoresUser(t *testing.T) {
	user := &User{ID: "1", Role: RoleAdmin}
	ctx := WithAccessContext(context.Background(), NewAccess(user, true))

	got, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, user, got)

	assert.True(t, Can(ctx, PermManageUsers))
	assert.True(t, HasRoleInContext(ctx, RoleManager, RoleAdmin))
	assert.False(t, Can(context.Background(), PermAccessDashboard))
}
