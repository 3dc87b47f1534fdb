package model

import (
	"math"
	"sort"

	"github.com/hashicorp/go-version"
)

// App is a package metadata row of the catalog.
type App struct {
	RepoID      int64    `json:"repoId"`
	PackageName string   `json:"packageName"`
	Metadata    Metadata `json:"metadata"`
}

// AppVersion is a package version row of the catalog.
type AppVersion struct {
	RepoID      int64  `json:"repoId"`
	PackageName string `json:"packageName"`
	VersionID   string `json:"versionId"`
	PackageVersion
}

// AppPreferences are the per-package overrides a user can set.
type AppPreferences struct {
	PackageName             string   `json:"packageName"`
	IgnoreAllUpdates        bool     `json:"ignoreAllUpdates,omitempty"`
	IgnoreVersionCodeUpdate int64    `json:"ignoreVersionCodeUpdate,omitempty"`
	ReleaseChannels         []string `json:"releaseChannels,omitempty"`
}

// IgnoredVersionCode returns the highest version code the user does not want to be
// offered. Ignoring all updates ignores every version code.
func (p AppPreferences) IgnoredVersionCode() int64 {
	if p.IgnoreAllUpdates {
		return math.MaxInt64
	}
	return p.IgnoreVersionCodeUpdate
}

// InstalledApp is a package the device has installed.
type InstalledApp struct {
	PackageName string `json:"packageName"`
	VersionCode int64  `json:"versionCode"`
	VersionName string `json:"versionName,omitempty"`
	Signer      string `json:"signer,omitempty"`
}

// SortVersions orders versions by descending version code. Versions sharing a version code
// are ordered by their version name when both parse as versions, then by version id.
func SortVersions(versions []AppVersion) {
	sort.SliceStable(versions, func(i, j int) bool {
		a, b := versions[i], versions[j]
		if a.VersionCode() != b.VersionCode() {
			return a.VersionCode() > b.VersionCode()
		}
		va, errA := version.NewVersion(a.VersionName())
		vb, errB := version.NewVersion(b.VersionName())
		if errA == nil && errB == nil && !va.Equal(vb) {
			return va.GreaterThan(vb)
		}
		return a.VersionID < b.VersionID
	})
}
