package index

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/cperrin88/reposync/pkg/errors"
	"github.com/cperrin88/reposync/pkg/model"
)

func metadataPatch(t *testing.T, doc string) MetadataPatch {
	t.Helper()
	var p MetadataPatch
	require.NoError(t, json.Unmarshal([]byte(doc), &p))
	return p
}

func versionPatch(t *testing.T, doc string) VersionPatch {
	t.Helper()
	var p VersionPatch
	require.NoError(t, json.Unmarshal([]byte(doc), &p))
	return p
}

func repoPatch(t *testing.T, doc string) RepoPatch {
	t.Helper()
	var p RepoPatch
	require.NoError(t, json.Unmarshal([]byte(doc), &p))
	return p
}

func storedMetadata() model.Metadata {
	return model.Metadata{
		Name:        model.LocalizedText{"en-US": "Example", "de": "Beispiel"},
		Summary:     model.LocalizedText{"en-US": "An example"},
		Added:       100,
		LastUpdated: 200,
		WebSite:     "https://example.org",
		License:     "GPL-3.0-only",
		Categories:  []string{"System"},
		Icon:        model.LocalizedFile{"en-US": {Name: "/icon.png", SHA256: "aa", Size: 10}},
	}
}

func storedVersion() model.PackageVersion {
	return model.PackageVersion{
		Added: 300,
		File:  model.File{Name: "/app_3.apk", SHA256: "cafe", Size: 1024},
		Manifest: model.Manifest{
			VersionName: "1.3",
			VersionCode: 3,
			UsesSdk:     &model.UsesSdk{MinSdkVersion: 21, TargetSdkVersion: 33},
			Signer:      &model.Signer{SHA256: []string{"sig"}},
			NativeCode:  []string{"arm64-v8a"},
		},
		AntiFeatures: map[string]model.LocalizedText{"Ads": {"en-US": "Shows ads"}},
		WhatsNew:     model.LocalizedText{"en-US": "Fixes"},
	}
}

func TestOpt_UnmarshalJSON(t *testing.T) {
	var p struct {
		A Opt[string] `json:"a"`
		B Opt[string] `json:"b"`
		C Opt[string] `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"x","b":null}`), &p))
	assert.Equal(t, Some("x"), p.A)
	assert.Equal(t, Null[string](), p.B)
	assert.False(t, p.C.Set)
}

func TestApplyMetadataPatch(t *testing.T) {
	tests := []struct {
		name  string
		patch string
		check func(t *testing.T, m model.Metadata)
	}{
		{
			name:  "empty patch keeps everything",
			patch: `{}`,
			check: func(t *testing.T, m model.Metadata) { assert.Equal(t, storedMetadata(), m) },
		},
		{
			name:  "scalar replaced",
			patch: `{"lastUpdated": 250, "license": "MIT"}`,
			check: func(t *testing.T, m model.Metadata) {
				assert.Equal(t, int64(250), m.LastUpdated)
				assert.Equal(t, "MIT", m.License)
				assert.Equal(t, int64(100), m.Added)
			},
		},
		{
			name:  "nullable scalar cleared",
			patch: `{"webSite": null}`,
			check: func(t *testing.T, m model.Metadata) { assert.Empty(t, m.WebSite) },
		},
		{
			name:  "localized text merged per locale",
			patch: `{"name": {"de": null, "fr": "Exemple"}}`,
			check: func(t *testing.T, m model.Metadata) {
				assert.Equal(t, model.LocalizedText{"en-US": "Example", "fr": "Exemple"}, m.Name)
			},
		},
		{
			name:  "localized text cleared",
			patch: `{"summary": null}`,
			check: func(t *testing.T, m model.Metadata) { assert.Nil(t, m.Summary) },
		},
		{
			name:  "list replaced as a whole",
			patch: `{"categories": ["Internet", "Games"]}`,
			check: func(t *testing.T, m model.Metadata) {
				assert.Equal(t, []string{"Internet", "Games"}, m.Categories)
			},
		},
		{
			name:  "existing file patched",
			patch: `{"icon": {"en-US": {"sha256": "bb"}}}`,
			check: func(t *testing.T, m model.Metadata) {
				assert.Equal(t, model.File{Name: "/icon.png", SHA256: "bb", Size: 10}, m.Icon["en-US"])
			},
		},
		{
			name:  "new file constructed",
			patch: `{"icon": {"de": {"name": "/de/icon.png", "size": 5}}}`,
			check: func(t *testing.T, m model.Metadata) {
				assert.Equal(t, model.File{Name: "/de/icon.png", Size: 5}, m.Icon["de"])
				assert.Len(t, m.Icon, 2)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ApplyMetadataPatch(storedMetadata(), metadataPatch(t, tt.patch))
			require.NoError(t, err)
			tt.check(t, m)
		})
	}
}

func TestApplyMetadataPatch_Errors(t *testing.T) {
	tests := []struct {
		name  string
		patch string
	}{
		{"required field cleared", `{"added": null}`},
		{"repoId denied", `{"repoId": 1}`},
		{"packageName denied", `{"packageName": "x"}`},
		{"new file without name", `{"icon": {"de": {"size": 5}}}`},
		{"file name cleared", `{"icon": {"en-US": {"name": null}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyMetadataPatch(storedMetadata(), metadataPatch(t, tt.patch))
			require.Error(t, err)
			assert.ErrorIs(t, err, pkgerrors.ErrDecode)
		})
	}
}

func TestApplyMetadataPatch_TypeMismatch(t *testing.T) {
	var p MetadataPatch
	err := json.Unmarshal([]byte(`{"added": "yesterday"}`), &p)
	require.Error(t, err)
}

func TestNewMetadata(t *testing.T) {
	m, err := NewMetadata(metadataPatch(t, `{"added": 1, "lastUpdated": 2, "name": {"en-US": "New"}}`))
	require.NoError(t, err)
	assert.Equal(t, model.Metadata{Added: 1, LastUpdated: 2, Name: model.LocalizedText{"en-US": "New"}}, m)

	_, err = NewMetadata(metadataPatch(t, `{"added": 1}`))
	assert.ErrorIs(t, err, pkgerrors.ErrDecode)
}

func TestApplyVersionPatch(t *testing.T) {
	tests := []struct {
		name  string
		patch string
		check func(t *testing.T, v model.PackageVersion)
	}{
		{
			name:  "manifest fields patched in place",
			patch: `{"manifest": {"versionName": "1.3.1", "usesSdk": {"targetSdkVersion": 34}}}`,
			check: func(t *testing.T, v model.PackageVersion) {
				assert.Equal(t, "1.3.1", v.Manifest.VersionName)
				assert.Equal(t, int64(3), v.Manifest.VersionCode)
				assert.Equal(t, &model.UsesSdk{MinSdkVersion: 21, TargetSdkVersion: 34}, v.Manifest.UsesSdk)
			},
		},
		{
			name:  "nullable nested record cleared",
			patch: `{"manifest": {"signer": null, "maxSdkVersion": 30}}`,
			check: func(t *testing.T, v model.PackageVersion) {
				assert.Nil(t, v.Manifest.Signer)
				require.NotNil(t, v.Manifest.MaxSdkVersion)
				assert.Equal(t, 30, *v.Manifest.MaxSdkVersion)
			},
		},
		{
			name:  "permissions replaced",
			patch: `{"manifest": {"usesPermission": [{"name": "android.permission.INTERNET"}]}}`,
			check: func(t *testing.T, v model.PackageVersion) {
				assert.Equal(t, []model.Permission{{Name: "android.permission.INTERNET"}}, v.Manifest.UsesPermission)
			},
		},
		{
			name:  "anti-feature removed and added",
			patch: `{"antiFeatures": {"Ads": null, "KnownVuln": {}}}`,
			check: func(t *testing.T, v model.PackageVersion) {
				assert.Equal(t, map[string]model.LocalizedText{"KnownVuln": {}}, v.AntiFeatures)
				assert.True(t, v.HasKnownVulnerability())
			},
		},
		{
			name:  "anti-feature text patched",
			patch: `{"antiFeatures": {"Ads": {"de": "Werbung"}}}`,
			check: func(t *testing.T, v model.PackageVersion) {
				assert.Equal(t, model.LocalizedText{"en-US": "Shows ads", "de": "Werbung"}, v.AntiFeatures["Ads"])
			},
		},
		{
			name:  "src constructed",
			patch: `{"src": {"name": "/app_3_src.tar.gz"}}`,
			check: func(t *testing.T, v model.PackageVersion) {
				assert.Equal(t, &model.File{Name: "/app_3_src.tar.gz"}, v.Src)
			},
		},
		{
			name:  "release channels set",
			patch: `{"releaseChannels": ["Beta"]}`,
			check: func(t *testing.T, v model.PackageVersion) {
				assert.Equal(t, []string{"Beta"}, v.ReleaseChannels)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ApplyVersionPatch(storedVersion(), versionPatch(t, tt.patch))
			require.NoError(t, err)
			tt.check(t, v)
		})
	}
}

func TestApplyVersionPatch_Errors(t *testing.T) {
	tests := []struct {
		name  string
		patch string
	}{
		{"file cleared", `{"file": null}`},
		{"manifest cleared", `{"manifest": null}`},
		{"versionCode cleared", `{"manifest": {"versionCode": null}}`},
		{"versionId denied", `{"versionId": "x"}`},
		{"repoId denied", `{"repoId": 2}`},
		{"packageName denied", `{"packageName": "x"}`},
		{"usesSdk field cleared", `{"manifest": {"usesSdk": {"minSdkVersion": null}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyVersionPatch(storedVersion(), versionPatch(t, tt.patch))
			assert.ErrorIs(t, err, pkgerrors.ErrDecode)
		})
	}
}

func TestApplyVersionPatch_ConstructsMissingNestedRecord(t *testing.T) {
	v := storedVersion()
	v.Manifest.UsesSdk = nil

	_, err := ApplyVersionPatch(v, versionPatch(t, `{"manifest": {"usesSdk": {"minSdkVersion": 23}}}`))
	assert.ErrorIs(t, err, pkgerrors.ErrDecode, "a new usesSdk needs every required field")

	got, err := ApplyVersionPatch(v, versionPatch(t, `{"manifest": {"usesSdk": {"minSdkVersion": 23, "targetSdkVersion": 34}}}`))
	require.NoError(t, err)
	assert.Equal(t, &model.UsesSdk{MinSdkVersion: 23, TargetSdkVersion: 34}, got.Manifest.UsesSdk)
}

func TestNewVersion(t *testing.T) {
	v, err := NewVersion(versionPatch(t, `{
		"added": 5,
		"file": {"name": "/app_4.apk", "sha256": "beef", "size": 2048},
		"manifest": {"versionName": "1.4", "versionCode": 4, "signer": {"sha256": ["sig"]}},
		"whatsNew": {"en-US": "New"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, model.PackageVersion{
		Added: 5,
		File:  model.File{Name: "/app_4.apk", SHA256: "beef", Size: 2048},
		Manifest: model.Manifest{
			VersionName: "1.4",
			VersionCode: 4,
			Signer:      &model.Signer{SHA256: []string{"sig"}},
		},
		WhatsNew: model.LocalizedText{"en-US": "New"},
	}, v)

	for _, doc := range []string{
		`{"file": {"name": "/a.apk"}, "manifest": {"versionName": "1", "versionCode": 1}}`,
		`{"added": 1, "manifest": {"versionName": "1", "versionCode": 1}}`,
		`{"added": 1, "file": {"name": "/a.apk"}}`,
		`{"added": 1, "file": {"sha256": "x"}, "manifest": {"versionName": "1", "versionCode": 1}}`,
		`{"added": 1, "file": {"name": "/a.apk"}, "manifest": {"versionName": "1"}}`,
	} {
		_, err := NewVersion(versionPatch(t, doc))
		assert.ErrorIs(t, err, pkgerrors.ErrDecode, doc)
	}
}

func TestApplyRepoPatch(t *testing.T) {
	stored := model.RepoIndex{
		Name:      model.LocalizedText{"en-US": "Repo"},
		Address:   "https://repo.example.org/repo",
		Timestamp: 1000,
		Mirrors:   []model.MirrorEntry{{URL: "https://mirror.example.org/repo"}},
		AntiFeatures: map[string]model.AntiFeature{
			"Ads": {Name: model.LocalizedText{"en-US": "Ads"}},
		},
		Categories: map[string]model.Category{
			"System": {Name: model.LocalizedText{"en-US": "System"}},
		},
	}

	got, err := ApplyRepoPatch(stored, repoPatch(t, `{
		"timestamp": 2000,
		"mirrors": [{"url": "https://other.example.org/repo", "countryCode": "DE"}],
		"antiFeatures": {"Ads": {"description": {"en-US": "Shows ads"}}, "Tracking": {"name": {"en-US": "Tracking"}}},
		"categories": {"System": null},
		"releaseChannels": {"Beta": {"name": {"en-US": "Beta"}}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.Timestamp)
	assert.Equal(t, []model.MirrorEntry{{URL: "https://other.example.org/repo", CountryCode: "DE"}}, got.Mirrors)
	assert.Equal(t, model.AntiFeature{
		Name:        model.LocalizedText{"en-US": "Ads"},
		Description: model.LocalizedText{"en-US": "Shows ads"},
	}, got.AntiFeatures["Ads"])
	assert.Contains(t, got.AntiFeatures, "Tracking")
	assert.Empty(t, got.Categories)
	assert.Contains(t, got.ReleaseChannels, "Beta")
	assert.Equal(t, "Repo", stored.AntiFeatures["Ads"].Name["en-US"])
	assert.Empty(t, stored.AntiFeatures["Ads"].Description, "stored value must not be mutated")

	for _, doc := range []string{
		`{"timestamp": null}`,
		`{"address": null}`,
		`{"antiFeatures": {"New": {"description": {"en-US": "no name"}}}}`,
		`{"releaseChannels": {"Beta": {"description": {"en-US": "no name"}}}}`,
	} {
		_, err := ApplyRepoPatch(stored, repoPatch(t, doc))
		assert.ErrorIs(t, err, pkgerrors.ErrDecode, doc)
	}
}

// Applying a patch and then a patch restoring the touched fields yields the original record.
func TestApplyMetadataPatch_RoundTrip(t *testing.T) {
	orig := storedMetadata()
	forward := `{"name": {"de": null, "fr": "Exemple"}, "webSite": null, "license": "MIT", "categories": ["Games"]}`
	inverse := `{"name": {"de": "Beispiel", "fr": null}, "webSite": "https://example.org", "license": "GPL-3.0-only", "categories": ["System"]}`

	changed, err := ApplyMetadataPatch(orig, metadataPatch(t, forward))
	require.NoError(t, err)
	require.NotEqual(t, orig, changed)

	restored, err := ApplyMetadataPatch(changed, metadataPatch(t, inverse))
	require.NoError(t, err)
	assert.Equal(t, orig, restored)
}

func TestApplyVersionsDiff(t *testing.T) {
	stored := map[string]model.PackageVersion{"cafe": storedVersion()}
	var patches map[string]*VersionPatch
	require.NoError(t, json.Unmarshal([]byte(`{
		"cafe": null,
		"beef": {"added": 1, "file": {"name": "/b.apk"}, "manifest": {"versionName": "2", "versionCode": 4}},
		"dead": {"added": 2}
	}`), &patches))

	_, _, err := ApplyVersionsDiff(stored, patches)
	assert.ErrorIs(t, err, pkgerrors.ErrDecode, "unknown version needs a full record")

	delete(patches, "dead")
	upsert, remove, err := ApplyVersionsDiff(stored, patches)
	require.NoError(t, err)
	assert.Equal(t, []string{"cafe"}, remove)
	require.Contains(t, upsert, "beef")
	assert.Equal(t, int64(4), upsert["beef"].VersionCode())
}
