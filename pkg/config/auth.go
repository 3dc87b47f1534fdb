package config

import "github.com/cperrin88/reposync/pkg/auth"

// AuthConfigContainer is implemented by the auth configuration types.
type AuthConfigContainer interface {
	ToAuthenticator() auth.Authenticator
}

// AuthConfig holds the credentials of a repository. At most one scheme is used; basic
// auth wins over header auth, which wins over bearer auth.
type AuthConfig struct {
	BasicAuth  *BasicAuth  `yaml:"basic,omitempty"`
	HeaderAuth *HeaderAuth `yaml:"header,omitempty"`
	BearerAuth *BearerAuth `yaml:"bearer,omitempty"`
}

// BasicAuth holds configuration for HTTP Basic Authentication.
type BasicAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// HeaderAuth holds configuration for custom header-based authentication.
type HeaderAuth struct {
	Headers map[string]string `yaml:"headers"`
}

// BearerAuth holds configuration for Bearer token authentication.
type BearerAuth struct {
	Token string `yaml:"token"`
}

// ToAuthenticator converts the BasicAuth configuration to an Authenticator.
func (b *BasicAuth) ToAuthenticator() auth.Authenticator {
	return auth.BasicAuth{Username: b.Username, Password: b.Password}
}

// ToAuthenticator converts the HeaderAuth configuration to an Authenticator.
func (h *HeaderAuth) ToAuthenticator() auth.Authenticator {
	return auth.HeaderAuth{Headers: h.Headers}
}

// ToAuthenticator converts the BearerAuth configuration to an Authenticator.
func (b *BearerAuth) ToAuthenticator() auth.Authenticator {
	return auth.BearerAuth{Token: b.Token}
}

func (a *AuthConfig) container() AuthConfigContainer {
	switch {
	case a == nil:
		return nil
	case a.BasicAuth != nil:
		return a.BasicAuth
	case a.HeaderAuth != nil:
		return a.HeaderAuth
	case a.BearerAuth != nil:
		return a.BearerAuth
	default:
		return nil
	}
}

// ToAuthMap maps repository addresses to their authenticators. Repositories without
// credentials are left out; the result is nil when none has any.
func (c *Config) ToAuthMap() map[string]auth.Authenticator {
	results := make(map[string]auth.Authenticator, len(c.Repositories))
	for _, repo := range c.Repositories {
		if ac := repo.Auth.container(); ac != nil {
			results[repo.NormalizedAddress()] = ac.ToAuthenticator()
		}
	}
	if len(results) == 0 {
		return nil
	}
	return results
}
