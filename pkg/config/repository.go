package config

import (
	"net/url"
	"strings"

	"github.com/cperrin88/reposync/pkg/jarsign"
	"github.com/cperrin88/reposync/pkg/model"
)

// RepositoryConfig is a repository seeded into the catalog.
type RepositoryConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	// Fingerprint pins the SHA-256 fingerprint of the signing certificate. Without it the
	// first certificate seen is trusted.
	Fingerprint string   `yaml:"fingerprint,omitempty"`
	Mirrors     []string `yaml:"mirrors,omitempty"`
	// Enabled defaults to true when omitted.
	Enabled *bool       `yaml:"enabled,omitempty"`
	Weight  int         `yaml:"weight,omitempty"`
	Auth    *AuthConfig `yaml:"auth,omitempty"`
}

// IsEnabled reports whether the repository is enabled.
func (rc *RepositoryConfig) IsEnabled() bool {
	return rc.Enabled == nil || *rc.Enabled
}

// GetURL parses and returns the repository address.
func (rc *RepositoryConfig) GetURL() *url.URL {
	parse, err := url.Parse(rc.Address)
	if err != nil {
		return nil
	}
	return parse
}

// NormalizedAddress is the address without trailing slashes, as stored in the catalog.
func (rc *RepositoryConfig) NormalizedAddress() string {
	return strings.TrimRight(rc.Address, "/")
}

// ToRepository converts the configuration into a catalog repository. Header and bearer
// credentials are not stored in the catalog; see Config.ToAuthMap.
func (rc *RepositoryConfig) ToRepository() model.Repository {
	r := model.Repository{
		Address:     rc.NormalizedAddress(),
		Fingerprint: jarsign.NormalizeFingerprint(rc.Fingerprint),
		Weight:      rc.Weight,
		Enabled:     rc.IsEnabled(),
	}
	if rc.Name != "" {
		r.Name = model.LocalizedText{"en-US": rc.Name}
	}
	for _, m := range rc.Mirrors {
		r.UserMirrors = append(r.UserMirrors, model.Mirror{BaseURL: strings.TrimRight(m, "/"), IsUserMirror: true, Enabled: true})
	}
	if rc.Auth != nil && rc.Auth.BasicAuth != nil {
		r.Username = rc.Auth.BasicAuth.Username
		r.Password = rc.Auth.BasicAuth.Password
	}
	return r
}
