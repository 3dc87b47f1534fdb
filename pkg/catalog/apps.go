package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	pkgerrors "github.com/cperrin88/reposync/pkg/errors"
	"github.com/cperrin88/reposync/pkg/model"
)

// UpsertApp stores the metadata of a package in a repository.
func (q *Queries) UpsertApp(ctx context.Context, repoID int64, packageName string, m model.Metadata) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode metadata of %s: %w", packageName, err)
	}
	_, err = q.db.ExecContext(ctx, `INSERT INTO apps (repo_id, package_name, metadata) VALUES (?, ?, ?)
		ON CONFLICT (repo_id, package_name) DO UPDATE SET metadata = excluded.metadata`,
		repoID, packageName, string(data))
	if err != nil {
		return fmt.Errorf("failed to upsert app %s: %w", packageName, err)
	}
	return nil
}

// GetApp returns the metadata of a package in one repository.
func (q *Queries) GetApp(ctx context.Context, repoID int64, packageName string) (model.App, error) {
	var data string
	err := q.db.QueryRowContext(ctx, `SELECT metadata FROM apps WHERE repo_id = ? AND package_name = ?`,
		repoID, packageName).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.App{}, fmt.Errorf("%w: %s", pkgerrors.ErrAppNotFound, packageName)
	}
	if err != nil {
		return model.App{}, fmt.Errorf("failed to select app %s: %w", packageName, err)
	}
	app := model.App{RepoID: repoID, PackageName: packageName}
	if err := json.Unmarshal([]byte(data), &app.Metadata); err != nil {
		return model.App{}, fmt.Errorf("failed to decode app %s: %w", packageName, err)
	}
	return app, nil
}

// DeleteApp removes the metadata of a package; its versions are kept.
func (q *Queries) DeleteApp(ctx context.Context, repoID int64, packageName string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM apps WHERE repo_id = ? AND package_name = ?`, repoID, packageName); err != nil {
		return fmt.Errorf("failed to delete app %s: %w", packageName, err)
	}
	return nil
}

// UpsertVersion stores one version of a package. Versions are keyed by their version id, so
// two versions sharing a version code are distinct rows.
func (q *Queries) UpsertVersion(ctx context.Context, repoID int64, packageName, versionID string, v model.PackageVersion) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode version %s of %s: %w", versionID, packageName, err)
	}
	_, err = q.db.ExecContext(ctx, `INSERT INTO versions (repo_id, package_name, version_id, version_code, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (repo_id, package_name, version_id) DO UPDATE SET
			version_code = excluded.version_code, data = excluded.data`,
		repoID, packageName, versionID, v.VersionCode(), string(data))
	if err != nil {
		return fmt.Errorf("failed to upsert version %s of %s: %w", versionID, packageName, err)
	}
	return nil
}

// DeleteVersion removes one version of a package.
func (q *Queries) DeleteVersion(ctx context.Context, repoID int64, packageName, versionID string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM versions WHERE repo_id = ? AND package_name = ? AND version_id = ?`,
		repoID, packageName, versionID)
	if err != nil {
		return fmt.Errorf("failed to delete version %s of %s: %w", versionID, packageName, err)
	}
	return nil
}

// DeleteVersions removes all versions of a package in a repository.
func (q *Queries) DeleteVersions(ctx context.Context, repoID int64, packageName string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM versions WHERE repo_id = ? AND package_name = ?`, repoID, packageName); err != nil {
		return fmt.Errorf("failed to delete versions of %s: %w", packageName, err)
	}
	return nil
}

// GetVersions returns the versions of a package in one repository keyed by version id.
func (q *Queries) GetVersions(ctx context.Context, repoID int64, packageName string) (map[string]model.PackageVersion, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT version_id, data FROM versions WHERE repo_id = ? AND package_name = ?`,
		repoID, packageName)
	if err != nil {
		return nil, fmt.Errorf("failed to select versions of %s: %w", packageName, err)
	}
	defer func() { _ = rows.Close() }()

	out := map[string]model.PackageVersion{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		var v model.PackageVersion
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("failed to decode version %s of %s: %w", id, packageName, err)
		}
		out[id] = v
	}
	return out, rows.Err()
}

// CountApps returns the number of packages with metadata in a repository.
func (q *Queries) CountApps(ctx context.Context, repoID int64) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM apps WHERE repo_id = ?`, repoID).Scan(&n)
	return n, err
}

// AppVersions returns the versions of packageName from all enabled repositories, ordered by
// descending version code and then by descending repository weight.
func (q *Queries) AppVersions(ctx context.Context, packageName string) ([]model.AppVersion, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT v.repo_id, v.version_id, v.data FROM versions v
		JOIN repositories r ON r.id = v.repo_id
		WHERE v.package_name = ? AND r.enabled = 1
		ORDER BY v.version_code DESC, r.weight DESC, v.version_id`, packageName)
	if err != nil {
		return nil, fmt.Errorf("failed to select versions of %s: %w", packageName, err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.AppVersion
	for rows.Next() {
		v := model.AppVersion{PackageName: packageName}
		var data string
		if err := rows.Scan(&v.RepoID, &v.VersionID, &data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &v.PackageVersion); err != nil {
			return nil, fmt.Errorf("failed to decode version %s of %s: %w", v.VersionID, packageName, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// App returns the metadata of packageName from the enabled repository with the highest weight.
func (q *Queries) App(ctx context.Context, packageName string) (model.App, error) {
	var (
		repoID int64
		data   string
	)
	err := q.db.QueryRowContext(ctx, `SELECT a.repo_id, a.metadata FROM apps a
		JOIN repositories r ON r.id = a.repo_id
		WHERE a.package_name = ? AND r.enabled = 1
		ORDER BY r.weight DESC, r.id LIMIT 1`, packageName).Scan(&repoID, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.App{}, fmt.Errorf("%w: %s", pkgerrors.ErrAppNotFound, packageName)
	}
	if err != nil {
		return model.App{}, fmt.Errorf("failed to select app %s: %w", packageName, err)
	}
	app := model.App{RepoID: repoID, PackageName: packageName}
	if err := json.Unmarshal([]byte(data), &app.Metadata); err != nil {
		return model.App{}, fmt.Errorf("failed to decode app %s: %w", packageName, err)
	}
	return app, nil
}

// InstalledApps returns the installed-app snapshot ordered by package name.
func (q *Queries) InstalledApps(ctx context.Context) ([]model.InstalledApp, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT package_name, version_code, version_name, signer
		FROM installed_apps ORDER BY package_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to select installed apps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.InstalledApp
	for rows.Next() {
		var a model.InstalledApp
		if err := rows.Scan(&a.PackageName, &a.VersionCode, &a.VersionName, &a.Signer); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetInstalledApp records an installed package.
func (q *Queries) SetInstalledApp(ctx context.Context, a model.InstalledApp) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO installed_apps (package_name, version_code, version_name, signer)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (package_name) DO UPDATE SET version_code = excluded.version_code,
			version_name = excluded.version_name, signer = excluded.signer`,
		a.PackageName, a.VersionCode, a.VersionName, a.Signer)
	if err != nil {
		return fmt.Errorf("failed to record installed app %s: %w", a.PackageName, err)
	}
	return nil
}

// RemoveInstalledApp forgets an installed package.
func (q *Queries) RemoveInstalledApp(ctx context.Context, packageName string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM installed_apps WHERE package_name = ?`, packageName); err != nil {
		return fmt.Errorf("failed to remove installed app %s: %w", packageName, err)
	}
	return nil
}

// AppPreferences returns the preferences of a package, the zero preferences when none are set.
func (q *Queries) AppPreferences(ctx context.Context, packageName string) (model.AppPreferences, error) {
	p := model.AppPreferences{PackageName: packageName}
	var channels string
	err := q.db.QueryRowContext(ctx, `SELECT ignore_all_updates, ignore_version_code, release_channels
		FROM app_preferences WHERE package_name = ?`, packageName).
		Scan(&p.IgnoreAllUpdates, &p.IgnoreVersionCodeUpdate, &channels)
	if errors.Is(err, sql.ErrNoRows) {
		return p, nil
	}
	if err != nil {
		return model.AppPreferences{}, fmt.Errorf("failed to select preferences of %s: %w", packageName, err)
	}
	if err := json.Unmarshal([]byte(channels), &p.ReleaseChannels); err != nil {
		return model.AppPreferences{}, fmt.Errorf("failed to decode preferences of %s: %w", packageName, err)
	}
	return p, nil
}

// SetAppPreferences stores the preferences of a package.
func (q *Queries) SetAppPreferences(ctx context.Context, p model.AppPreferences) error {
	channels, err := marshalList(p.ReleaseChannels)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, `INSERT INTO app_preferences (package_name, ignore_all_updates, ignore_version_code, release_channels)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (package_name) DO UPDATE SET ignore_all_updates = excluded.ignore_all_updates,
			ignore_version_code = excluded.ignore_version_code, release_channels = excluded.release_channels`,
		p.PackageName, p.IgnoreAllUpdates, p.IgnoreVersionCodeUpdate, channels)
	if err != nil {
		return fmt.Errorf("failed to store preferences of %s: %w", p.PackageName, err)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, pkgerrors.ErrAppNotFound)
}
