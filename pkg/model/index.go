// Package model provides the data structures shared by the index parsers, the catalog and
// the update logic: repository index documents, package metadata, package versions and the
// per-app preferences that influence update selection.
package model

import "strconv"

// ReleaseChannelBeta is the channel assigned to pre-release versions.
const ReleaseChannelBeta = "Beta"

// AntiFeatureKnownVuln marks a version with a known security vulnerability.
const AntiFeatureKnownVuln = "KnownVuln"

// DefaultLocale is the locale used for untranslated legacy index fields.
const DefaultLocale = "en-US"

// LocalizedText maps a locale tag to a string.
type LocalizedText map[string]string

// LocalizedFile maps a locale tag to a file.
type LocalizedFile map[string]File

// File is a downloadable artifact referenced by an index: an index document, an icon or an
// installable package. SHA256 and Size are verified after download when present.
type File struct {
	Name      string `json:"name"`
	SHA256    string `json:"sha256,omitempty"`
	Size      int64  `json:"size,omitempty"`
	IPFSCIDv1 string `json:"ipfsCIDv1,omitempty"`
}

// MirrorEntry is a mirror as published in the repository index.
type MirrorEntry struct {
	URL         string `json:"url"`
	CountryCode string `json:"countryCode,omitempty"`
}

// AntiFeature describes one anti-feature a repository knows about.
type AntiFeature struct {
	Icon        LocalizedFile `json:"icon,omitempty"`
	Name        LocalizedText `json:"name"`
	Description LocalizedText `json:"description,omitempty"`
}

// Category describes one app category.
type Category struct {
	Icon        LocalizedFile `json:"icon,omitempty"`
	Name        LocalizedText `json:"name"`
	Description LocalizedText `json:"description,omitempty"`
}

// ReleaseChannel describes one opt-in release channel.
type ReleaseChannel struct {
	Name        LocalizedText `json:"name"`
	Description LocalizedText `json:"description,omitempty"`
}

// RepoIndex is the "repo" section of an index document.
type RepoIndex struct {
	Name            LocalizedText             `json:"name,omitempty"`
	Icon            LocalizedFile             `json:"icon,omitempty"`
	Address         string                    `json:"address"`
	WebBaseURL      string                    `json:"webBaseUrl,omitempty"`
	Description     LocalizedText             `json:"description,omitempty"`
	Mirrors         []MirrorEntry             `json:"mirrors,omitempty"`
	Timestamp       int64                     `json:"timestamp"`
	AntiFeatures    map[string]AntiFeature    `json:"antiFeatures,omitempty"`
	Categories      map[string]Category       `json:"categories,omitempty"`
	ReleaseChannels map[string]ReleaseChannel `json:"releaseChannels,omitempty"`
}

// Metadata is the per-package metadata of an index document.
type Metadata struct {
	Name            LocalizedText `json:"name,omitempty"`
	Summary         LocalizedText `json:"summary,omitempty"`
	Description     LocalizedText `json:"description,omitempty"`
	Added           int64         `json:"added"`
	LastUpdated     int64         `json:"lastUpdated"`
	WebSite         string        `json:"webSite,omitempty"`
	Changelog       string        `json:"changelog,omitempty"`
	License         string        `json:"license,omitempty"`
	SourceCode      string        `json:"sourceCode,omitempty"`
	IssueTracker    string        `json:"issueTracker,omitempty"`
	Translation     string        `json:"translation,omitempty"`
	PreferredSigner string        `json:"preferredSigner,omitempty"`
	Categories      []string      `json:"categories,omitempty"`
	AuthorName      string        `json:"authorName,omitempty"`
	AuthorEmail     string        `json:"authorEmail,omitempty"`
	AuthorWebSite   string        `json:"authorWebSite,omitempty"`
	AuthorPhone     string        `json:"authorPhone,omitempty"`
	Donate          []string      `json:"donate,omitempty"`
	LiberapayID     string        `json:"liberapayID,omitempty"`
	Liberapay       string        `json:"liberapay,omitempty"`
	OpenCollective  string        `json:"openCollective,omitempty"`
	Bitcoin         string        `json:"bitcoin,omitempty"`
	Litecoin        string        `json:"litecoin,omitempty"`
	Icon            LocalizedFile `json:"icon,omitempty"`
	FeatureGraphic  LocalizedFile `json:"featureGraphic,omitempty"`
}

// UsesSdk holds the SDK bounds a package was built for.
type UsesSdk struct {
	MinSdkVersion    int `json:"minSdkVersion"`
	TargetSdkVersion int `json:"targetSdkVersion"`
}

// Signer lists the SHA-256 hashes of the certificates a package is signed with.
type Signer struct {
	SHA256             []string `json:"sha256"`
	HasMultipleSigners bool     `json:"hasMultipleSigners,omitempty"`
}

// Permission is a requested platform permission.
type Permission struct {
	Name          string `json:"name"`
	MaxSdkVersion *int   `json:"maxSdkVersion,omitempty"`
}

// Feature is a required hardware or software feature.
type Feature struct {
	Name string `json:"name"`
}

// Manifest is the package manifest of a version.
type Manifest struct {
	VersionName    string       `json:"versionName"`
	VersionCode    int64        `json:"versionCode"`
	UsesSdk        *UsesSdk     `json:"usesSdk,omitempty"`
	MaxSdkVersion  *int         `json:"maxSdkVersion,omitempty"`
	Signer         *Signer      `json:"signer,omitempty"`
	UsesPermission []Permission `json:"usesPermission,omitempty"`
	NativeCode     []string     `json:"nativecode,omitempty"`
	Features       []Feature    `json:"features,omitempty"`
}

// MinSdkVersion returns the declared minimum SDK, 1 when undeclared.
func (m Manifest) MinSdkVersion() int {
	if m.UsesSdk == nil {
		return 1
	}
	return m.UsesSdk.MinSdkVersion
}

// FeatureNames returns the required feature names.
func (m Manifest) FeatureNames() []string {
	names := make([]string, 0, len(m.Features))
	for _, f := range m.Features {
		names = append(names, f.Name)
	}
	return names
}

// PackageVersion is one installable version of a package.
type PackageVersion struct {
	Added           int64                    `json:"added"`
	File            File                     `json:"file"`
	Src             *File                    `json:"src,omitempty"`
	Manifest        Manifest                 `json:"manifest"`
	ReleaseChannels []string                 `json:"releaseChannels,omitempty"`
	AntiFeatures    map[string]LocalizedText `json:"antiFeatures,omitempty"`
	WhatsNew        LocalizedText            `json:"whatsNew,omitempty"`
}

// VersionCode returns the ordering key of the version.
func (v PackageVersion) VersionCode() int64 { return v.Manifest.VersionCode }

// VersionName returns the display name of the version.
func (v PackageVersion) VersionName() string { return v.Manifest.VersionName }

// Signers returns the declared signer hashes, nil when the index carries no signer.
func (v PackageVersion) Signers() []string {
	if v.Manifest.Signer == nil {
		return nil
	}
	return v.Manifest.Signer.SHA256
}

// HasMultipleSigners reports whether the package is signed by more than one certificate.
func (v PackageVersion) HasMultipleSigners() bool {
	return v.Manifest.Signer != nil && v.Manifest.Signer.HasMultipleSigners
}

// HasKnownVulnerability reports whether the repository flagged this version as vulnerable.
func (v PackageVersion) HasKnownVulnerability() bool {
	_, ok := v.AntiFeatures[AntiFeatureKnownVuln]
	return ok
}

// Package is a complete package record of a full index.
type Package struct {
	Metadata Metadata                  `json:"metadata"`
	Versions map[string]PackageVersion `json:"versions,omitempty"`
}

// EntryFile is an index file referenced by the signed entry document.
type EntryFile struct {
	File
	NumPackages int `json:"numPackages"`
}

// Entry is the signed entry point of a v2 repository. It names the full index and the
// diffs that lead from older timestamps to the current one.
type Entry struct {
	Timestamp int64                `json:"timestamp"`
	Version   int64                `json:"version"`
	MaxAge    *int                 `json:"maxAge,omitempty"`
	Index     EntryFile            `json:"index"`
	Diffs     map[string]EntryFile `json:"diffs,omitempty"`
}

// Diff returns the diff that applies on top of the given timestamp, if any.
func (e Entry) Diff(fromTimestamp int64) (EntryFile, bool) {
	d, ok := e.Diffs[strconv.FormatInt(fromTimestamp, 10)]
	return d, ok
}
