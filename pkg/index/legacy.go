package index

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	pkgerrors "github.com/cperrin88/reposync/pkg/errors"
	"github.com/cperrin88/reposync/pkg/model"
)

// LegacyReceiver consumes a v1 index.
type LegacyReceiver interface {
	ReceiveRepo(repo model.RepoIndex, version int64) error
	ReceiveApp(packageName string, m model.Metadata) error
	// UpdateAppSigner records the signer of the newest version as the preferred signer.
	UpdateAppSigner(packageName, signer string) error
	ReceiveVersions(packageName string, versions map[string]model.PackageVersion) error
	// UpdateRepo is called last with the dictionaries rebuilt from the app records.
	UpdateRepo(antiFeatures map[string]model.AntiFeature, categories map[string]model.Category,
		releaseChannels map[string]model.ReleaseChannel) error
}

// OldIndexError is returned when a v1 index is not newer than the stored one.
type OldIndexError struct {
	SameTimestamp bool
	Address       string
	Timestamp     int64
}

func (e *OldIndexError) Error() string {
	return fmt.Sprintf("old index for %s at %d", e.Address, e.Timestamp)
}

type repoV1 struct {
	Timestamp   int64    `json:"timestamp"`
	Version     int64    `json:"version"`
	Name        string   `json:"name"`
	Icon        string   `json:"icon"`
	Address     string   `json:"address"`
	Description string   `json:"description"`
	Mirrors     []string `json:"mirrors"`
	MaxAge      int      `json:"maxage"`
}

type localizedV1 struct {
	Name           string `json:"name"`
	Summary        string `json:"summary"`
	Description    string `json:"description"`
	WhatsNew       string `json:"whatsNew"`
	Icon           string `json:"icon"`
	FeatureGraphic string `json:"featureGraphic"`
}

type appV1 struct {
	PackageName          string                 `json:"packageName"`
	Categories           []string               `json:"categories"`
	AntiFeatures         []string               `json:"antiFeatures"`
	SuggestedVersionCode string                 `json:"suggestedVersionCode"`
	Name                 string                 `json:"name"`
	Summary              string                 `json:"summary"`
	Description          string                 `json:"description"`
	Icon                 string                 `json:"icon"`
	Added                int64                  `json:"added"`
	LastUpdated          int64                  `json:"lastUpdated"`
	License              string                 `json:"license"`
	WebSite              string                 `json:"webSite"`
	SourceCode           string                 `json:"sourceCode"`
	IssueTracker         string                 `json:"issueTracker"`
	Changelog            string                 `json:"changelog"`
	Translation          string                 `json:"translation"`
	AuthorName           string                 `json:"authorName"`
	AuthorEmail          string                 `json:"authorEmail"`
	Donate               string                 `json:"donate"`
	Bitcoin              string                 `json:"bitcoin"`
	Litecoin             string                 `json:"litecoin"`
	Liberapay            string                 `json:"liberapay"`
	OpenCollective       string                 `json:"openCollective"`
	Localized            map[string]localizedV1 `json:"localized"`
}

// permissionV1 is encoded as a [name, maxSdkVersion] pair.
type permissionV1 model.Permission

func (p *permissionV1) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) == 0 {
		return pkgerrors.ErrDecodef("empty permission")
	}
	if err := json.Unmarshal(pair[0], &p.Name); err != nil {
		return err
	}
	if len(pair) > 1 {
		return json.Unmarshal(pair[1], &p.MaxSdkVersion)
	}
	return nil
}

type packageV1 struct {
	Added            int64          `json:"added"`
	APKName          string         `json:"apkName"`
	Hash             string         `json:"hash"`
	HashType         string         `json:"hashType"`
	MinSdkVersion    *int           `json:"minSdkVersion"`
	MaxSdkVersion    *int           `json:"maxSdkVersion"`
	TargetSdkVersion *int           `json:"targetSdkVersion"`
	NativeCode       []string       `json:"nativecode"`
	PackageName      string         `json:"packageName"`
	Signer           string         `json:"signer"`
	Size             int64          `json:"size"`
	SrcName          string         `json:"srcname"`
	UsesPermission   []permissionV1 `json:"uses-permission"`
	VersionCode      int64          `json:"versionCode"`
	VersionName      string         `json:"versionName"`
	AntiFeatures     []string       `json:"antiFeatures"`
	Features         []string       `json:"features"`
}

// appData is what the packages section needs to know about an app.
type appData struct {
	antiFeatures  []string
	categories    []string
	whatsNew      model.LocalizedText
	suggestedCode int64
}

// LegacyProcessor reads a v1 index. The top-level keys must appear in the order repo,
// requests, apps, packages; the document may end after any of them.
type LegacyProcessor struct {
	counter
	receiver      LegacyReceiver
	lastTimestamp int64
}

// NewLegacyProcessor creates a processor that rejects indexes not newer than lastTimestamp.
func NewLegacyProcessor(receiver LegacyReceiver, lastTimestamp int64) *LegacyProcessor {
	return &LegacyProcessor{receiver: receiver, lastTimestamp: lastTimestamp}
}

// Process streams r into the receiver.
func (p *LegacyProcessor) Process(ctx context.Context, r io.Reader) error {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	if err := expectKey(dec, keyRepo); err != nil {
		return err
	}
	if err := p.processRepo(dec); err != nil {
		return err
	}

	apps := map[string]appData{}
	sections := []struct {
		key string
		fn  func() error
	}{
		{keyRequests, func() error { return skip(dec, keyRequests) }},
		{keyApps, func() error { return p.processApps(ctx, dec, apps) }},
		{keyPackages, func() error { return p.processPackages(ctx, dec, apps) }},
	}
	for _, s := range sections {
		if !dec.More() {
			break
		}
		if err := expectKey(dec, s.key); err != nil {
			return err
		}
		if err := s.fn(); err != nil {
			return err
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return err
	}
	return p.updateRepo(apps)
}

func expectKey(dec *json.Decoder, want string) error {
	tok, err := dec.Token()
	if err != nil {
		return decodeErr(err, want)
	}
	if key, ok := tok.(string); !ok || key != want {
		return pkgerrors.ErrDecodef("expected key %q, got %v", want, tok)
	}
	return nil
}

func (p *LegacyProcessor) processRepo(dec *json.Decoder) error {
	var repo repoV1
	if err := dec.Decode(&repo); err != nil {
		return decodeErr(err, keyRepo)
	}
	if p.lastTimestamp >= repo.Timestamp {
		return &OldIndexError{
			SameTimestamp: p.lastTimestamp == repo.Timestamp,
			Address:       repo.Address,
			Timestamp:     repo.Timestamp,
		}
	}
	return p.receiver.ReceiveRepo(repo.toRepoIndex(), repo.Version)
}

func (p *LegacyProcessor) processApps(ctx context.Context, dec *json.Decoder, apps map[string]appData) error {
	return walkArray(dec, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var app appV1
		if err := dec.Decode(&app); err != nil {
			return decodeErr(err, keyApps)
		}
		if err := p.receiver.ReceiveApp(app.PackageName, app.toMetadata()); err != nil {
			return err
		}
		suggested, _ := strconv.ParseInt(app.SuggestedVersionCode, 10, 64)
		apps[app.PackageName] = appData{
			antiFeatures:  app.AntiFeatures,
			categories:    app.Categories,
			whatsNew:      app.whatsNew(),
			suggestedCode: suggested,
		}
		return nil
	})
}

func (p *LegacyProcessor) processPackages(ctx context.Context, dec *json.Decoder, apps map[string]appData) error {
	return walkObject(dec, func(name string) error {
		app := apps[name]
		versions := map[string]model.PackageVersion{}
		first := true
		err := walkArray(dec, func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var pkg packageV1
			if err := dec.Decode(&pkg); err != nil {
				return decodeErr(err, "packages."+name)
			}
			if first {
				if err := p.receiver.UpdateAppSigner(name, pkg.Signer); err != nil {
					return err
				}
				first = false
			}
			v := pkg.toPackageVersion(app)
			versions[v.File.SHA256] = v
			return nil
		})
		if err != nil {
			return err
		}
		if err := p.receiver.ReceiveVersions(name, versions); err != nil {
			return err
		}
		p.inc()
		return nil
	})
}

func (p *LegacyProcessor) updateRepo(apps map[string]appData) error {
	antiFeatures := map[string]model.AntiFeature{}
	categories := map[string]model.Category{}
	for _, app := range apps {
		for _, a := range app.antiFeatures {
			antiFeatures[a] = model.AntiFeature{}
		}
		for _, c := range app.categories {
			categories[c] = model.Category{}
		}
	}
	return p.receiver.UpdateRepo(antiFeatures, categories, LegacyReleaseChannels())
}

// LegacyReleaseChannels returns the channels implied by a v1 index, which only knows betas.
func LegacyReleaseChannels() map[string]model.ReleaseChannel {
	return map[string]model.ReleaseChannel{
		model.ReleaseChannelBeta: {Name: model.LocalizedText{model.DefaultLocale: model.ReleaseChannelBeta}},
	}
}

func defaultText(s string) model.LocalizedText {
	if s == "" {
		return nil
	}
	return model.LocalizedText{model.DefaultLocale: s}
}

func (r repoV1) toRepoIndex() model.RepoIndex {
	idx := model.RepoIndex{
		Name:        defaultText(r.Name),
		Address:     r.Address,
		Description: defaultText(r.Description),
		Timestamp:   r.Timestamp,
	}
	if r.Icon != "" {
		idx.Icon = model.LocalizedFile{model.DefaultLocale: {Name: "/icons/" + r.Icon}}
	}
	for _, m := range r.Mirrors {
		idx.Mirrors = append(idx.Mirrors, model.MirrorEntry{URL: m})
	}
	return idx
}

func (a appV1) whatsNew() model.LocalizedText {
	var out model.LocalizedText
	for locale, l := range a.Localized {
		if l.WhatsNew == "" {
			continue
		}
		if out == nil {
			out = model.LocalizedText{}
		}
		out[locale] = l.WhatsNew
	}
	return out
}

// localized merges the untranslated value under the default locale with the translations.
func (a appV1) localized(untranslated string, get func(localizedV1) string) model.LocalizedText {
	out := defaultText(untranslated)
	for locale, l := range a.Localized {
		v := get(l)
		if v == "" {
			continue
		}
		if out == nil {
			out = model.LocalizedText{}
		}
		out[locale] = v
	}
	return out
}

func (a appV1) localizedFiles(get func(localizedV1) string) model.LocalizedFile {
	var out model.LocalizedFile
	for locale, l := range a.Localized {
		v := get(l)
		if v == "" {
			continue
		}
		if out == nil {
			out = model.LocalizedFile{}
		}
		out[locale] = model.File{Name: "/" + a.PackageName + "/" + locale + "/" + v}
	}
	return out
}

func (a appV1) toMetadata() model.Metadata {
	m := model.Metadata{
		Name:           a.localized(a.Name, func(l localizedV1) string { return l.Name }),
		Summary:        a.localized(a.Summary, func(l localizedV1) string { return l.Summary }),
		Description:    a.localized(a.Description, func(l localizedV1) string { return l.Description }),
		Added:          a.Added,
		LastUpdated:    a.LastUpdated,
		WebSite:        a.WebSite,
		Changelog:      a.Changelog,
		License:        a.License,
		SourceCode:     a.SourceCode,
		IssueTracker:   a.IssueTracker,
		Translation:    a.Translation,
		Categories:     a.Categories,
		AuthorName:     a.AuthorName,
		AuthorEmail:    a.AuthorEmail,
		Liberapay:      a.Liberapay,
		OpenCollective: a.OpenCollective,
		Bitcoin:        a.Bitcoin,
		Litecoin:       a.Litecoin,
		Icon:           a.localizedFiles(func(l localizedV1) string { return l.Icon }),
		FeatureGraphic: a.localizedFiles(func(l localizedV1) string { return l.FeatureGraphic }),
	}
	if a.Donate != "" {
		m.Donate = []string{a.Donate}
	}
	if a.Icon != "" {
		if m.Icon == nil {
			m.Icon = model.LocalizedFile{}
		}
		if _, ok := m.Icon[model.DefaultLocale]; !ok {
			m.Icon[model.DefaultLocale] = model.File{Name: "/icons/" + a.Icon}
		}
	}
	return m
}

func (p packageV1) toPackageVersion(app appData) model.PackageVersion {
	v := model.PackageVersion{
		Added: p.Added,
		File:  model.File{Name: "/" + p.APKName, SHA256: p.Hash, Size: p.Size},
		Manifest: model.Manifest{
			VersionName:   p.VersionName,
			VersionCode:   p.VersionCode,
			MaxSdkVersion: p.MaxSdkVersion,
			NativeCode:    p.NativeCode,
		},
	}
	if p.SrcName != "" {
		v.Src = &model.File{Name: "/" + p.SrcName}
	}
	if p.MinSdkVersion != nil || p.TargetSdkVersion != nil {
		u := &model.UsesSdk{MinSdkVersion: 1}
		if p.MinSdkVersion != nil {
			u.MinSdkVersion = *p.MinSdkVersion
		}
		u.TargetSdkVersion = u.MinSdkVersion
		if p.TargetSdkVersion != nil {
			u.TargetSdkVersion = *p.TargetSdkVersion
		}
		v.Manifest.UsesSdk = u
	}
	if p.Signer != "" {
		v.Manifest.Signer = &model.Signer{SHA256: []string{p.Signer}}
	}
	for _, perm := range p.UsesPermission {
		v.Manifest.UsesPermission = append(v.Manifest.UsesPermission, model.Permission(perm))
	}
	for _, f := range p.Features {
		v.Manifest.Features = append(v.Manifest.Features, model.Feature{Name: f})
	}
	if p.VersionCode > app.suggestedCode {
		v.ReleaseChannels = []string{model.ReleaseChannelBeta}
	}
	if p.VersionCode == app.suggestedCode {
		v.WhatsNew = app.whatsNew
	}
	for _, names := range [][]string{app.antiFeatures, p.AntiFeatures} {
		for _, name := range names {
			if v.AntiFeatures == nil {
				v.AntiFeatures = map[string]model.LocalizedText{}
			}
			v.AntiFeatures[name] = model.LocalizedText{}
		}
	}
	return v
}
