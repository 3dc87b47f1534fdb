//go:generate mockgen -destination=./mocks/source.go . Source
package update

import (
	"context"

	"github.com/cperrin88/reposync/internal/logger"
	"github.com/cperrin88/reposync/pkg/model"
)

// Source is the catalog view the update scan reads.
type Source interface {
	InstalledApps(ctx context.Context) ([]model.InstalledApp, error)
	// AppVersions returns the versions of packageName from all enabled repositories,
	// ordered by descending version code and then by descending repository weight.
	AppVersions(ctx context.Context, packageName string) ([]model.AppVersion, error)
	// App returns the metadata of packageName from the enabled repository with the highest weight.
	App(ctx context.Context, packageName string) (model.App, error)
	AppPreferences(ctx context.Context, packageName string) (model.AppPreferences, error)
}

// AvailableUpdate is an installed app together with the version it should be updated to.
type AvailableUpdate struct {
	PackageName          string           `json:"packageName"`
	Name                 string           `json:"name"`
	InstalledVersionCode int64            `json:"installedVersionCode"`
	InstalledVersionName string           `json:"installedVersionName,omitempty"`
	Update               model.AppVersion `json:"update"`
}

// ScanOptions are the global inputs of an update scan.
type ScanOptions struct {
	AllowedReleaseChannels      []string
	IncludeKnownVulnerabilities bool
	Locales                     []string
}

// Scanner runs the Checker over every installed app.
type Scanner struct {
	source  Source
	checker *Checker
	opts    ScanOptions
}

// NewScanner creates a Scanner.
func NewScanner(source Source, checker *Checker, opts ScanOptions) *Scanner {
	return &Scanner{source: source, checker: checker, opts: opts}
}

// Scan returns the available updates of all installed apps. Apps without versions in any
// enabled repository are skipped.
func (s *Scanner) Scan(ctx context.Context) ([]AvailableUpdate, error) {
	installed, err := s.source.InstalledApps(ctx)
	if err != nil {
		return nil, err
	}

	var updates []AvailableUpdate
	for _, inst := range installed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		u, ok, err := s.scanOne(ctx, inst)
		if err != nil {
			return nil, err
		}
		if ok {
			updates = append(updates, u)
		}
	}
	logger.Debug("update scan finished", logger.Fields{"installed": len(installed), "updates": len(updates)})
	return updates, nil
}

func (s *Scanner) scanOne(ctx context.Context, inst model.InstalledApp) (AvailableUpdate, bool, error) {
	versions, err := s.source.AppVersions(ctx, inst.PackageName)
	if err != nil {
		return AvailableUpdate{}, false, err
	}
	if len(versions) == 0 {
		return AvailableUpdate{}, false, nil
	}
	prefs, err := s.source.AppPreferences(ctx, inst.PackageName)
	if err != nil {
		return AvailableUpdate{}, false, err
	}

	q := Query{
		InstalledVersionCode:        inst.VersionCode,
		AllowedReleaseChannels:      s.opts.AllowedReleaseChannels,
		IncludeKnownVulnerabilities: s.opts.IncludeKnownVulnerabilities,
		Preferences:                 &prefs,
	}
	if inst.Signer != "" {
		q.AllowedSigners = func() SignerSet { return NewSignerSet(inst.Signer) }
	}
	v, ok := s.checker.Update(versions, q)
	if !ok {
		return AvailableUpdate{}, false, nil
	}

	name := inst.PackageName
	if app, err := s.source.App(ctx, inst.PackageName); err == nil {
		if n := model.ChooseLocale(app.Metadata.Name, s.opts.Locales...); n != "" {
			name = n
		}
	}
	return AvailableUpdate{
		PackageName:          inst.PackageName,
		Name:                 name,
		InstalledVersionCode: inst.VersionCode,
		InstalledVersionName: inst.VersionName,
		Update:               v,
	}, true, nil
}
