// Package update selects the version a device should install or update to.
package update

import (
	"iter"
	"slices"

	"github.com/cperrin88/reposync/pkg/model"
)

// Compatibility decides whether a manifest can be installed on the device.
type Compatibility interface {
	IsCompatible(m model.Manifest) bool
}

// SignerSet is a set of signer certificate hashes.
type SignerSet map[string]struct{}

// NewSignerSet builds a SignerSet from hashes. It never returns nil.
func NewSignerSet(hashes ...string) SignerSet {
	s := make(SignerSet, len(hashes))
	for _, h := range hashes {
		s[h] = struct{}{}
	}
	return s
}

func (s SignerSet) intersects(hashes []string) bool {
	for _, h := range hashes {
		if _, ok := s[h]; ok {
			return true
		}
	}
	return false
}

// Query holds the inputs of an update selection besides the version list.
type Query struct {
	// InstalledVersionCode is the version code on the device, 0 when not installed.
	InstalledVersionCode int64
	// AllowedSigners is called at most once, when the first candidate with declared
	// signers reaches the signer gate. A nil func or a nil set disables the gate; an
	// empty set rejects every signed version.
	AllowedSigners func() SignerSet
	// AllowedReleaseChannels are the channels enabled globally, in addition to stable.
	AllowedReleaseChannels []string
	// IncludeKnownVulnerabilities yields the installed version when it is flagged vulnerable.
	IncludeKnownVulnerabilities bool
	Preferences                 *model.AppPreferences
}

// Checker applies the update gates to version lists.
type Checker struct {
	compat Compatibility
}

// NewChecker creates a Checker.
func NewChecker(c Compatibility) *Checker {
	return &Checker{compat: c}
}

// Updates yields the versions that qualify as updates, highest version code first.
// versions must be sorted by descending version code.
func (c *Checker) Updates(versions []model.AppVersion, q Query) iter.Seq[model.AppVersion] {
	return func(yield func(model.AppVersion) bool) {
		var (
			signers       SignerSet
			signersLoaded bool
		)
		allowedSigners := func() SignerSet {
			if !signersLoaded {
				signersLoaded = true
				if q.AllowedSigners != nil {
					signers = q.AllowedSigners()
				}
			}
			return signers
		}

		var ignored int64
		var prefChannels []string
		if q.Preferences != nil {
			ignored = q.Preferences.IgnoredVersionCode()
			prefChannels = q.Preferences.ReleaseChannels
		}

		for _, v := range versions {
			code := v.VersionCode()
			if q.IncludeKnownVulnerabilities && code == q.InstalledVersionCode && v.HasKnownVulnerability() {
				if !yield(v) {
					return
				}
				continue
			}
			if code <= q.InstalledVersionCode {
				return
			}
			if v.HasMultipleSigners() {
				continue
			}
			if c.compat != nil && !c.compat.IsCompatible(v.Manifest) {
				continue
			}
			if ignored >= code {
				continue
			}
			if !channelAllowed(v.ReleaseChannels, q.AllowedReleaseChannels, prefChannels) {
				continue
			}
			if declared := v.Signers(); len(declared) > 0 {
				if allowed := allowedSigners(); allowed != nil && !allowed.intersects(declared) {
					continue
				}
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Update returns the highest qualifying version.
func (c *Checker) Update(versions []model.AppVersion, q Query) (model.AppVersion, bool) {
	for v := range c.Updates(versions, q) {
		return v, true
	}
	return model.AppVersion{}, false
}

// SuggestedVersion returns the version to offer for a package that is not installed.
// Only versions signed by preferredSigner qualify when it is set.
func (c *Checker) SuggestedVersion(versions []model.AppVersion, preferredSigner string, allowedChannels []string, prefs *model.AppPreferences) (model.AppVersion, bool) {
	q := Query{
		InstalledVersionCode:   0,
		AllowedReleaseChannels: allowedChannels,
		Preferences:            prefs,
	}
	if preferredSigner != "" {
		q.AllowedSigners = func() SignerSet { return NewSignerSet(preferredSigner) }
	}
	return c.Update(versions, q)
}

// channelAllowed passes stable versions and otherwise needs one channel that is enabled
// globally or for the app.
func channelAllowed(versionChannels, allowed, preferred []string) bool {
	if len(versionChannels) == 0 {
		return true
	}
	for _, ch := range versionChannels {
		if slices.Contains(allowed, ch) || slices.Contains(preferred, ch) {
			return true
		}
	}
	return false
}
