package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cperrin88/reposync/pkg/auth"
)

func TestToAuthMap(t *testing.T) {
	tests := []struct {
		name     string
		repos    []*RepositoryConfig
		expected map[string]auth.Authenticator
	}{
		{
			name:     "no repositories",
			repos:    []*RepositoryConfig{},
			expected: nil,
		},
		{
			name:     "repository without auth",
			repos:    []*RepositoryConfig{{Name: "a", Address: "https://a.example.org/repo"}},
			expected: nil,
		},
		{
			name: "one scheme per repository",
			repos: []*RepositoryConfig{
				{Name: "basic", Address: "https://a.example.org/repo/", Auth: &AuthConfig{
					BasicAuth: &BasicAuth{Username: "user", Password: "pass"},
				}},
				{Name: "header", Address: "https://b.example.org/repo", Auth: &AuthConfig{
					HeaderAuth: &HeaderAuth{Headers: map[string]string{"X-API-Key": "k"}},
				}},
				{Name: "bearer", Address: "https://c.example.org/repo", Auth: &AuthConfig{
					BearerAuth: &BearerAuth{Token: "t"},
				}},
				{Name: "empty", Address: "https://d.example.org/repo", Auth: &AuthConfig{}},
			},
			expected: map[string]auth.Authenticator{
				"https://a.example.org/repo": auth.BasicAuth{Username: "user", Password: "pass"},
				"https://b.example.org/repo": auth.HeaderAuth{Headers: map[string]string{"X-API-Key": "k"}},
				"https://c.example.org/repo": auth.BearerAuth{Token: "t"},
			},
		},
		{
			name: "basic wins over bearer",
			repos: []*RepositoryConfig{
				{Name: "both", Address: "https://a.example.org/repo", Auth: &AuthConfig{
					BasicAuth:  &BasicAuth{Username: "user"},
					BearerAuth: &BearerAuth{Token: "t"},
				}},
			},
			expected: map[string]auth.Authenticator{
				"https://a.example.org/repo": auth.BasicAuth{Username: "user"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Repositories: tt.repos}
			assert.Equal(t, tt.expected, cfg.ToAuthMap())
		})
	}
}

func TestAuthenticatorTypes(t *testing.T) {
	assert.Equal(t, auth.BasicAuthType, (&BasicAuth{}).ToAuthenticator().Type())
	assert.Equal(t, auth.HeaderAuthType, (&HeaderAuth{}).ToAuthenticator().Type())
	assert.Equal(t, auth.BearerAuthType, (&BearerAuth{}).ToAuthenticator().Type())
}
