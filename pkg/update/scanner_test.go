package update_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cperrin88/reposync/pkg/model"
	"github.com/cperrin88/reposync/pkg/update"
	updatemocks "github.com/cperrin88/reposync/pkg/update/mocks"
)

type anyDevice struct{}

func (anyDevice) IsCompatible(model.Manifest) bool { return true }

func appVersion(pkg string, code int64, signer string) model.AppVersion {
	v := model.AppVersion{RepoID: 1, PackageName: pkg, VersionID: pkg + "-" + string(rune('0'+code))}
	v.Manifest = model.Manifest{VersionCode: code, VersionName: "v" + string(rune('0'+code))}
	if signer != "" {
		v.Manifest.Signer = &model.Signer{SHA256: []string{signer}}
	}
	return v
}

func TestScanner_Scan(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := updatemocks.NewMockSource(ctrl)

	src.EXPECT().InstalledApps(gomock.Any()).Return([]model.InstalledApp{
		{PackageName: "org.example.a", VersionCode: 1, VersionName: "v1", Signer: "sig-a"},
		{PackageName: "org.example.b", VersionCode: 5, Signer: "sig-b"},
		{PackageName: "org.example.gone", VersionCode: 1},
		{PackageName: "org.example.foreign", VersionCode: 1, Signer: "mine"},
	}, nil)

	src.EXPECT().AppVersions(gomock.Any(), "org.example.a").Return([]model.AppVersion{
		appVersion("org.example.a", 3, "sig-a"), appVersion("org.example.a", 2, "sig-a"),
	}, nil)
	src.EXPECT().AppPreferences(gomock.Any(), "org.example.a").Return(model.AppPreferences{PackageName: "org.example.a"}, nil)
	src.EXPECT().App(gomock.Any(), "org.example.a").Return(model.App{
		PackageName: "org.example.a",
		Metadata:    model.Metadata{Name: model.LocalizedText{"en-US": "Example A", "de": "Beispiel A"}},
	}, nil)

	src.EXPECT().AppVersions(gomock.Any(), "org.example.b").Return([]model.AppVersion{appVersion("org.example.b", 5, "sig-b")}, nil)
	src.EXPECT().AppPreferences(gomock.Any(), "org.example.b").Return(model.AppPreferences{}, nil)

	src.EXPECT().AppVersions(gomock.Any(), "org.example.gone").Return(nil, nil)

	src.EXPECT().AppVersions(gomock.Any(), "org.example.foreign").Return([]model.AppVersion{appVersion("org.example.foreign", 2, "theirs")}, nil)
	src.EXPECT().AppPreferences(gomock.Any(), "org.example.foreign").Return(model.AppPreferences{}, nil)

	s := update.NewScanner(src, update.NewChecker(anyDevice{}), update.ScanOptions{Locales: []string{"de-DE"}})
	updates, err := s.Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, updates, 1)
	assert.Equal(t, "org.example.a", updates[0].PackageName)
	assert.Equal(t, "Beispiel A", updates[0].Name)
	assert.EqualValues(t, 1, updates[0].InstalledVersionCode)
	assert.EqualValues(t, 3, updates[0].Update.VersionCode())
}

func TestScanner_SourceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := updatemocks.NewMockSource(ctrl)
	boom := errors.New("database is locked")
	src.EXPECT().InstalledApps(gomock.Any()).Return(nil, boom)

	_, err := update.NewScanner(src, update.NewChecker(anyDevice{}), update.ScanOptions{}).Scan(context.Background())
	assert.ErrorIs(t, err, boom)
}
