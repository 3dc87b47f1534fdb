package index_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	pkgerrors "github.com/cperrin88/reposync/pkg/errors"
	"github.com/cperrin88/reposync/pkg/index"
	indexmocks "github.com/cperrin88/reposync/pkg/index/mocks"
	"github.com/cperrin88/reposync/pkg/model"
)

const legacyIndex = `{
	"repo": {
		"timestamp": 1700000000000, "version": 21, "name": "Legacy Repo", "icon": "icon.png",
		"address": "https://legacy.example.org/repo", "description": "Old style",
		"mirrors": ["https://mirror.example.org/repo"]
	},
	"requests": {"install": [], "uninstall": []},
	"apps": [
		{
			"packageName": "org.example.app",
			"categories": ["Internet"],
			"antiFeatures": ["Tracking"],
			"suggestedVersionCode": "2",
			"name": "App",
			"summary": "Does things",
			"icon": "org.example.app.2.png",
			"added": 100,
			"lastUpdated": 200,
			"license": "Apache-2.0",
			"donate": "https://donate.example.org",
			"localized": {"en-US": {"whatsNew": "Better"}, "de": {"name": "Anwendung", "icon": "icon.png"}}
		}
	],
	"packages": {
		"org.example.app": [
			{
				"added": 300, "apkName": "org.example.app_3.apk", "hash": "h3", "hashType": "sha256",
				"minSdkVersion": 24, "targetSdkVersion": 34, "packageName": "org.example.app",
				"signer": "sig", "size": 3000, "versionCode": 3, "versionName": "3.0-beta",
				"uses-permission": [["android.permission.INTERNET", null], ["android.permission.READ_CONTACTS", 22]],
				"antiFeatures": ["Ads"], "features": ["android.hardware.camera"]
			},
			{
				"added": 200, "apkName": "org.example.app_2.apk", "hash": "h2", "hashType": "sha256",
				"packageName": "org.example.app", "signer": "sig", "size": 2000,
				"versionCode": 2, "versionName": "2.0", "srcname": "org.example.app_2_src.tar.gz"
			}
		]
	}
}`

func TestLegacyProcessor(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := indexmocks.NewMockLegacyReceiver(ctrl)
	maxSdk := 22

	gomock.InOrder(
		rec.EXPECT().ReceiveRepo(gomock.Any(), int64(21)).DoAndReturn(func(repo model.RepoIndex, _ int64) error {
			assert.Equal(t, model.RepoIndex{
				Name:        model.LocalizedText{"en-US": "Legacy Repo"},
				Icon:        model.LocalizedFile{"en-US": {Name: "/icons/icon.png"}},
				Address:     "https://legacy.example.org/repo",
				Description: model.LocalizedText{"en-US": "Old style"},
				Mirrors:     []model.MirrorEntry{{URL: "https://mirror.example.org/repo"}},
				Timestamp:   1700000000000,
			}, repo)
			return nil
		}),
		rec.EXPECT().ReceiveApp("org.example.app", gomock.Any()).DoAndReturn(func(_ string, m model.Metadata) error {
			assert.Equal(t, model.LocalizedText{"en-US": "App", "de": "Anwendung"}, m.Name)
			assert.Equal(t, model.LocalizedText{"en-US": "Does things"}, m.Summary)
			assert.Equal(t, model.LocalizedFile{
				"en-US": {Name: "/icons/org.example.app.2.png"},
				"de":    {Name: "/org.example.app/de/icon.png"},
			}, m.Icon)
			assert.Equal(t, []string{"https://donate.example.org"}, m.Donate)
			assert.Equal(t, int64(100), m.Added)
			return nil
		}),
		rec.EXPECT().UpdateAppSigner("org.example.app", "sig").Return(nil),
		rec.EXPECT().ReceiveVersions("org.example.app", gomock.Any()).DoAndReturn(func(_ string, versions map[string]model.PackageVersion) error {
			require.Len(t, versions, 2)

			beta := versions["h3"]
			assert.Equal(t, []string{model.ReleaseChannelBeta}, beta.ReleaseChannels)
			assert.Nil(t, beta.WhatsNew)
			assert.Equal(t, map[string]model.LocalizedText{"Tracking": {}, "Ads": {}}, beta.AntiFeatures)
			assert.Equal(t, &model.UsesSdk{MinSdkVersion: 24, TargetSdkVersion: 34}, beta.Manifest.UsesSdk)
			assert.Equal(t, []model.Permission{
				{Name: "android.permission.INTERNET"},
				{Name: "android.permission.READ_CONTACTS", MaxSdkVersion: &maxSdk},
			}, beta.Manifest.UsesPermission)
			assert.Equal(t, []string{"android.hardware.camera"}, beta.Manifest.FeatureNames())
			assert.Equal(t, model.File{Name: "/org.example.app_3.apk", SHA256: "h3", Size: 3000}, beta.File)

			stable := versions["h2"]
			assert.Empty(t, stable.ReleaseChannels)
			assert.Equal(t, model.LocalizedText{"en-US": "Better"}, stable.WhatsNew)
			assert.Equal(t, &model.File{Name: "/org.example.app_2_src.tar.gz"}, stable.Src)
			assert.Nil(t, stable.Manifest.UsesSdk)
			return nil
		}),
		rec.EXPECT().UpdateRepo(
			map[string]model.AntiFeature{"Tracking": {}},
			map[string]model.Category{"Internet": {}},
			index.LegacyReleaseChannels(),
		).Return(nil),
	)

	p := index.NewLegacyProcessor(rec, 0)
	require.NoError(t, p.Process(context.Background(), strings.NewReader(legacyIndex)))
	assert.Equal(t, int64(1), p.Processed())
}

func TestLegacyProcessor_OldIndex(t *testing.T) {
	for name, last := range map[string]int64{"same": 1700000000000, "newer": 1800000000000} {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			rec := indexmocks.NewMockLegacyReceiver(ctrl)

			err := index.NewLegacyProcessor(rec, last).Process(context.Background(), strings.NewReader(legacyIndex))
			var old *index.OldIndexError
			require.True(t, errors.As(err, &old))
			assert.Equal(t, name == "same", old.SameTimestamp)
		})
	}
}

func TestLegacyProcessor_EndsEarly(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := indexmocks.NewMockLegacyReceiver(ctrl)

	rec.EXPECT().ReceiveRepo(gomock.Any(), int64(1)).Return(nil)
	rec.EXPECT().UpdateRepo(map[string]model.AntiFeature{}, map[string]model.Category{}, index.LegacyReleaseChannels()).Return(nil)

	doc := `{"repo": {"timestamp": 5, "version": 1, "address": "https://a"}, "requests": {}}`
	require.NoError(t, index.NewLegacyProcessor(rec, 0).Process(context.Background(), strings.NewReader(doc)))
}

func TestLegacyProcessor_StrictOrder(t *testing.T) {
	for name, doc := range map[string]string{
		"apps before repo":     `{"apps": [], "repo": {"timestamp": 5}}`,
		"packages before apps": `{"repo": {"timestamp": 5}, "requests": {}, "packages": {}, "apps": []}`,
		"requests missing":     `{"repo": {"timestamp": 5}, "apps": []}`,
		"trailing key":         `{"repo": {"timestamp": 5}, "requests": {}, "apps": [], "packages": {}, "x": 1}`,
	} {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			rec := indexmocks.NewMockLegacyReceiver(ctrl)
			rec.EXPECT().ReceiveRepo(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

			err := index.NewLegacyProcessor(rec, 0).Process(context.Background(), strings.NewReader(doc))
			assert.ErrorIs(t, err, pkgerrors.ErrDecode)
		})
	}
}
