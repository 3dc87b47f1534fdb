package index

import (
	"bytes"
	"encoding/json"

	"github.com/cperrin88/reposync/pkg/model"
)

// Opt is one field of a merge patch. It tells an absent key (Set false) apart from an
// explicit null (Null true) and a value.
type Opt[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// UnmarshalJSON implements json.Unmarshaler. It is only invoked for keys present in the
// document, including keys set to null.
func (o *Opt[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

// Some returns a set Opt holding v.
func Some[T any](v T) Opt[T] { return Opt[T]{Set: true, Value: v} }

// Null returns an Opt that clears the field.
func Null[T any]() Opt[T] { return Opt[T]{Set: true, Null: true} }

// TextPatch patches a localized text map; a nil value removes the locale.
type TextPatch map[string]*string

// FilesPatch patches a localized file map; a nil value removes the locale.
type FilesPatch map[string]*FilePatch

// FilePatch patches a model.File.
type FilePatch struct {
	Name      Opt[string] `json:"name"`
	SHA256    Opt[string] `json:"sha256"`
	Size      Opt[int64]  `json:"size"`
	IPFSCIDv1 Opt[string] `json:"ipfsCIDv1"`
}

// MetadataPatch patches model.Metadata.
type MetadataPatch struct {
	Name            Opt[TextPatch]  `json:"name"`
	Summary         Opt[TextPatch]  `json:"summary"`
	Description     Opt[TextPatch]  `json:"description"`
	Added           Opt[int64]      `json:"added"`
	LastUpdated     Opt[int64]      `json:"lastUpdated"`
	WebSite         Opt[string]     `json:"webSite"`
	Changelog       Opt[string]     `json:"changelog"`
	License         Opt[string]     `json:"license"`
	SourceCode      Opt[string]     `json:"sourceCode"`
	IssueTracker    Opt[string]     `json:"issueTracker"`
	Translation     Opt[string]     `json:"translation"`
	PreferredSigner Opt[string]     `json:"preferredSigner"`
	Categories      Opt[[]string]   `json:"categories"`
	AuthorName      Opt[string]     `json:"authorName"`
	AuthorEmail     Opt[string]     `json:"authorEmail"`
	AuthorWebSite   Opt[string]     `json:"authorWebSite"`
	AuthorPhone     Opt[string]     `json:"authorPhone"`
	Donate          Opt[[]string]   `json:"donate"`
	LiberapayID     Opt[string]     `json:"liberapayID"`
	Liberapay       Opt[string]     `json:"liberapay"`
	OpenCollective  Opt[string]     `json:"openCollective"`
	Bitcoin         Opt[string]     `json:"bitcoin"`
	Litecoin        Opt[string]     `json:"litecoin"`
	Icon            Opt[FilesPatch] `json:"icon"`
	FeatureGraphic  Opt[FilesPatch] `json:"featureGraphic"`

	// Keys owned by the catalog; a diff must never carry them.
	RepoID      Opt[json.RawMessage] `json:"repoId"`
	PackageName Opt[json.RawMessage] `json:"packageName"`
}

// UsesSdkPatch patches model.UsesSdk.
type UsesSdkPatch struct {
	MinSdkVersion    Opt[int] `json:"minSdkVersion"`
	TargetSdkVersion Opt[int] `json:"targetSdkVersion"`
}

// SignerPatch patches model.Signer.
type SignerPatch struct {
	SHA256             Opt[[]string] `json:"sha256"`
	HasMultipleSigners Opt[bool]     `json:"hasMultipleSigners"`
}

// ManifestPatch patches model.Manifest. Permission and feature lists are replaced as a whole.
type ManifestPatch struct {
	VersionName    Opt[string]             `json:"versionName"`
	VersionCode    Opt[int64]              `json:"versionCode"`
	UsesSdk        Opt[UsesSdkPatch]       `json:"usesSdk"`
	MaxSdkVersion  Opt[int]                `json:"maxSdkVersion"`
	Signer         Opt[SignerPatch]        `json:"signer"`
	UsesPermission Opt[[]model.Permission] `json:"usesPermission"`
	NativeCode     Opt[[]string]           `json:"nativecode"`
	Features       Opt[[]model.Feature]    `json:"features"`
}

// VersionPatch patches model.PackageVersion.
type VersionPatch struct {
	Added           Opt[int64]                `json:"added"`
	File            Opt[FilePatch]            `json:"file"`
	Src             Opt[FilePatch]            `json:"src"`
	Manifest        Opt[ManifestPatch]        `json:"manifest"`
	ReleaseChannels Opt[[]string]             `json:"releaseChannels"`
	AntiFeatures    Opt[map[string]TextPatch] `json:"antiFeatures"`
	WhatsNew        Opt[TextPatch]            `json:"whatsNew"`

	// Keys owned by the catalog; a diff must never carry them.
	RepoID      Opt[json.RawMessage] `json:"repoId"`
	PackageName Opt[json.RawMessage] `json:"packageName"`
	VersionID   Opt[json.RawMessage] `json:"versionId"`
}

// AntiFeaturePatch patches model.AntiFeature and model.Category, which share one shape.
type AntiFeaturePatch struct {
	Icon        Opt[FilesPatch] `json:"icon"`
	Name        Opt[TextPatch]  `json:"name"`
	Description Opt[TextPatch]  `json:"description"`
}

// ReleaseChannelPatch patches model.ReleaseChannel.
type ReleaseChannelPatch struct {
	Name        Opt[TextPatch] `json:"name"`
	Description Opt[TextPatch] `json:"description"`
}

// RepoPatch patches model.RepoIndex. Mirrors are replaced as a whole.
type RepoPatch struct {
	Name            Opt[TextPatch]                       `json:"name"`
	Icon            Opt[FilesPatch]                      `json:"icon"`
	Address         Opt[string]                          `json:"address"`
	WebBaseURL      Opt[string]                          `json:"webBaseUrl"`
	Description     Opt[TextPatch]                       `json:"description"`
	Mirrors         Opt[[]model.MirrorEntry]             `json:"mirrors"`
	Timestamp       Opt[int64]                           `json:"timestamp"`
	AntiFeatures    Opt[map[string]*AntiFeaturePatch]    `json:"antiFeatures"`
	Categories      Opt[map[string]*AntiFeaturePatch]    `json:"categories"`
	ReleaseChannels Opt[map[string]*ReleaseChannelPatch] `json:"releaseChannels"`
}
