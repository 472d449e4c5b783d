package auth_test

import (
	"context"

	auth "github.com/tokenestate/go-estate-auth"
	"github.com/stretchr/testify/mock"
)

// MockBackend implements auth.Backend
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Login(ctx context.Context, wallet string) (*auth.User, error) {
	args := m.Called(ctx, wallet)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBackend) Logout(ctx context.Context, wallet string) error {
	args := m.Called(ctx, wallet)
	return args.Error(0)
}

func (m *MockBackend) CreateUser(ctx context.Context, req auth.NewUserRequest) (*auth.User, error) {
	args := m.Called(ctx, req)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockAuthenticator implements auth.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, token string) (*auth.User, error) {
	args := m.Called(ctx, token)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthenticator) LoginOrCreate(ctx context.Context, token string, displayName ...string) (*auth.User, error) {
	args := m.Called(ctx, token)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthenticator) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// MockTokenStorage implements auth.TokenStorage
type MockTokenStorage struct {
	mock.Mock
}

func (m *MockTokenStorage) Load(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockTokenStorage) Save(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokenStorage) Delete(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

const (
	testWallet  = "0x1234567890abcdef1234567890abcdef12345678"
	otherWallet = "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"
)
