package model

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

// FormatVersion is the index format a repository was last synced from.
type FormatVersion string

// Known index formats.
const (
	FormatUnknown FormatVersion = ""
	FormatV1      FormatVersion = "v1"
	FormatV2      FormatVersion = "v2"
)

// Mirror is an alternate base URL of a repository.
type Mirror struct {
	BaseURL      string `json:"url"`
	Location     string `json:"location,omitempty"`
	IsUserMirror bool   `json:"isUserMirror,omitempty"`
	Enabled      bool   `json:"enabled"`
}

// URL resolves path against the mirror base URL.
func (m Mirror) URL(path string) (*url.URL, error) {
	base, err := url.Parse(strings.TrimSuffix(m.BaseURL, "/") + "/")
	if err != nil {
		return nil, err
	}
	return base.Parse(strings.TrimPrefix(path, "/"))
}

// Host returns the host part of the mirror URL without port.
func (m Mirror) Host() string {
	u, err := url.Parse(m.BaseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// IsOnion reports whether the mirror is only reachable through Tor.
func (m Mirror) IsOnion() bool {
	return strings.HasSuffix(m.Host(), ".onion")
}

// IsLocal reports whether the mirror is an IP literal on a non-privileged port, which is
// how a repository shared on the local network is addressed.
func (m Mirror) IsLocal() bool {
	u, err := url.Parse(m.BaseURL)
	if err != nil {
		return false
	}
	if net.ParseIP(u.Hostname()) == nil {
		return false
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return false
	}
	return port > 1023
}

// Repository is a repository row of the catalog.
type Repository struct {
	ID              int64                     `json:"id"`
	Address         string                    `json:"address"`
	Name            LocalizedText             `json:"name,omitempty"`
	Description     LocalizedText             `json:"description,omitempty"`
	Icon            LocalizedFile             `json:"icon,omitempty"`
	WebBaseURL      string                    `json:"webBaseUrl,omitempty"`
	Timestamp       int64                     `json:"timestamp"`
	FormatVersion   FormatVersion             `json:"formatVersion,omitempty"`
	Certificate     string                    `json:"certificate,omitempty"`
	Fingerprint     string                    `json:"fingerprint,omitempty"`
	Mirrors         []Mirror                  `json:"mirrors,omitempty"`
	UserMirrors     []Mirror                  `json:"userMirrors,omitempty"`
	DisabledMirrors []string                  `json:"disabledMirrors,omitempty"`
	Weight          int                       `json:"weight"`
	Enabled         bool                      `json:"enabled"`
	LastUpdated     int64                     `json:"lastUpdated,omitempty"`
	LastETag        string                    `json:"lastETag,omitempty"`
	LastError       string                    `json:"lastError,omitempty"`
	Username        string                    `json:"username,omitempty"`
	Password        string                    `json:"-"`
	AntiFeatures    map[string]AntiFeature    `json:"antiFeatures,omitempty"`
	Categories      map[string]Category       `json:"categories,omitempty"`
	ReleaseChannels map[string]ReleaseChannel `json:"releaseChannels,omitempty"`
}

// DisplayName returns the repository name for the given locales, falling back to the address.
func (r Repository) DisplayName(locales ...string) string {
	if name := ChooseLocale(r.Name, locales...); name != "" {
		return name
	}
	return r.Address
}

// EnabledMirrors returns the canonical address, the official mirrors and the user mirrors,
// de-duplicated and without the mirrors the user disabled. When every mirror is disabled
// the canonical address is returned so that the repository stays reachable.
func (r Repository) EnabledMirrors() []Mirror {
	disabled := make(map[string]struct{}, len(r.DisabledMirrors))
	for _, d := range r.DisabledMirrors {
		disabled[normalizeMirrorURL(d)] = struct{}{}
	}
	seen := make(map[string]struct{})
	var out []Mirror
	add := func(m Mirror) {
		key := normalizeMirrorURL(m.BaseURL)
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		if _, ok := disabled[key]; ok {
			return
		}
		m.Enabled = true
		out = append(out, m)
	}
	add(Mirror{BaseURL: r.Address})
	for _, m := range r.Mirrors {
		add(m)
	}
	for _, m := range r.UserMirrors {
		m.IsUserMirror = true
		add(m)
	}
	if len(out) == 0 && r.Address != "" {
		out = append(out, Mirror{BaseURL: r.Address, Enabled: true})
	}
	return out
}

// ApplyIndex copies the repository fields carried by an index document.
func (r *Repository) ApplyIndex(idx RepoIndex) {
	r.Name = idx.Name
	r.Description = idx.Description
	r.Icon = idx.Icon
	r.WebBaseURL = idx.WebBaseURL
	r.Timestamp = idx.Timestamp
	r.AntiFeatures = idx.AntiFeatures
	r.Categories = idx.Categories
	r.ReleaseChannels = idx.ReleaseChannels
	r.Mirrors = nil
	for _, m := range idx.Mirrors {
		r.Mirrors = append(r.Mirrors, Mirror{BaseURL: m.URL, Location: m.CountryCode})
	}
}

// Index returns the repository fields as an index document section.
func (r Repository) Index() RepoIndex {
	idx := RepoIndex{
		Name:            r.Name,
		Icon:            r.Icon,
		Address:         r.Address,
		WebBaseURL:      r.WebBaseURL,
		Description:     r.Description,
		Timestamp:       r.Timestamp,
		AntiFeatures:    r.AntiFeatures,
		Categories:      r.Categories,
		ReleaseChannels: r.ReleaseChannels,
	}
	for _, m := range r.Mirrors {
		idx.Mirrors = append(idx.Mirrors, MirrorEntry{URL: m.BaseURL, CountryCode: m.Location})
	}
	return idx
}

func normalizeMirrorURL(s string) string {
	return strings.TrimSuffix(strings.TrimSpace(s), "/")
}
