package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// Validate checks the values that would otherwise fail late.
func (c Config) Validate() error {
	err := validation.Errors{
		"backend.url": validation.Validate(c.Backend.URL, validation.Required, validation.By(httpURL)),
		"session.driver": validation.Validate(strings.ToLower(c.Session.Driver),
			validation.Required, validation.In("memory", "file", "sqlite")),
		"portal.guard_mode": validation.Validate(strings.ToLower(c.Portal.GuardMode),
			validation.Required, validation.In("redirect", "block")),
		"portal.login_path": validation.Validate(c.Portal.LoginPath,
			validation.Required, validation.By(absolutePath)),
	}.Filter()
	if err != nil {
		return goerrors.New("invalid configuration", goerrors.CategoryValidation).
			WithTextCode("INVALID_CONFIG").
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"errors": err.Error()})
	}
	return nil
}

func httpURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an http(s) URL")
	}
	return nil
}

func absolutePath(value any) error {
	s, _ := value.(string)
	if !strings.HasPrefix(s, "/") {
		return fmt.Errorf("must start with /")
	}
	return nil
}

func (c Config) GetBackendURL() string { return c.Backend.URL }
func (c Config) GetRateLimit() (float64, int) { return c.Backend.RateLimit, c.Backend.RateBurst }
func (c Config) GetSessionDriver() string { return strings.ToLower(c.Session.Driver) }
func (c Config) GetSessionPath() string { return c.Session.Path }
func (c Config) GetChainRPCURL() string { return c.Chain.RPCURL }
func (c Config) GetChainID() int64 { return c.Chain.ChainID }
func (c Config) GetRegistryAddress() string { return c.Chain.Registry }
func (c Config) GetSignerKey() string { return c.Chain.SignerKey }
func (c Config) GetPortalAddr() string { return c.Portal.Addr }
func (c Config) GetLoginPath() string { return c.Portal.LoginPath }
func (c Config) GetRejectedRouteKey() string { return c.Portal.RejectedRouteKey }
func (c Config) GetRejectedRouteDefault() string { return c.Portal.RejectedRouteDefault }
func (c Config) GetActivityDBPath() string { return c.Activity.DBPath }
func (c Config) GetLogLevel() string { return c.Log.Level }
func (c Config) IsDevelopment() bool { return c.Log.Development }

// GetRequestTimeout bounds every backend call; zero falls back to 15s.
func (c Config) GetRequestTimeout() time.Duration {
	if c.Backend.Timeout <= 0 {
		return 15 * time.Second
	}
	return c.Backend.Timeout
}

// BlockOnDeny reports whether guards render denial views instead of
// redirecting.
func (c Config) BlockOnDeny() bool {
	return strings.EqualFold(c.Portal.GuardMode, "block")
}

// HasChain reports whether enough chain settings are present to grant roles.
func (c Config) HasChain() bool {
	return c.Chain.RPCURL != "" && c.Chain.Registry != ""
}
