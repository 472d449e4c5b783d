package auth

import (
	"context"
)

// Logger is the structured logging contract used across the module. Messages
// are constant strings; variable data goes in key/value args.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// LoggerProvider hands out named loggers.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// Backend is the slice of the REST API the auth layer needs.
type Backend interface {
	Login(ctx context.Context, wallet string) (*User, error)
	Logout(ctx context.Context, wallet string) error
	CreateUser(ctx context.Context, req NewUserRequest) (*User, error)
}

// TokenStorage is the durable slot behind the Session Store. Load returns
// "" with a nil error when nothing is persisted.
type TokenStorage interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// Authenticator resolves identity tokens into users.
type Authenticator interface {
	Login(ctx context.Context, token string) (*User, error)
	LoginOrCreate(ctx context.Context, token string, displayName ...string) (*User, error)
	Logout(ctx context.Context, token string) error
}
