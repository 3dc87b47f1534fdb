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

// repoData holds the repository fields that come from the index document.
type repoData struct {
	Name            model.LocalizedText             `json:"name,omitempty"`
	Description     model.LocalizedText             `json:"description,omitempty"`
	Icon            model.LocalizedFile             `json:"icon,omitempty"`
	WebBaseURL      string                          `json:"webBaseUrl,omitempty"`
	Mirrors         []model.Mirror                  `json:"mirrors,omitempty"`
	AntiFeatures    map[string]model.AntiFeature    `json:"antiFeatures,omitempty"`
	Categories      map[string]model.Category       `json:"categories,omitempty"`
	ReleaseChannels map[string]model.ReleaseChannel `json:"releaseChannels,omitempty"`
}

const repoColumns = `id, address, data, timestamp, format_version, certificate, fingerprint,
	user_mirrors, disabled_mirrors, weight, enabled, last_updated, last_etag, last_error,
	username, password`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRepository(row rowScanner) (model.Repository, error) {
	var (
		r                           model.Repository
		data, userMirrors, disabled string
		format                      string
	)
	err := row.Scan(&r.ID, &r.Address, &data, &r.Timestamp, &format, &r.Certificate, &r.Fingerprint,
		&userMirrors, &disabled, &r.Weight, &r.Enabled, &r.LastUpdated, &r.LastETag, &r.LastError,
		&r.Username, &r.Password)
	if err != nil {
		return model.Repository{}, err
	}
	r.FormatVersion = model.FormatVersion(format)

	var d repoData
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return model.Repository{}, fmt.Errorf("failed to decode repository %d: %w", r.ID, err)
	}
	r.Name, r.Description, r.Icon, r.WebBaseURL = d.Name, d.Description, d.Icon, d.WebBaseURL
	r.Mirrors, r.AntiFeatures, r.Categories, r.ReleaseChannels = d.Mirrors, d.AntiFeatures, d.Categories, d.ReleaseChannels

	if err := json.Unmarshal([]byte(userMirrors), &r.UserMirrors); err != nil {
		return model.Repository{}, fmt.Errorf("failed to decode user mirrors of repository %d: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(disabled), &r.DisabledMirrors); err != nil {
		return model.Repository{}, fmt.Errorf("failed to decode disabled mirrors of repository %d: %w", r.ID, err)
	}
	return r, nil
}

func repositoryArgs(r model.Repository) ([]any, error) {
	data, err := json.Marshal(repoData{
		Name:            r.Name,
		Description:     r.Description,
		Icon:            r.Icon,
		WebBaseURL:      r.WebBaseURL,
		Mirrors:         r.Mirrors,
		AntiFeatures:    r.AntiFeatures,
		Categories:      r.Categories,
		ReleaseChannels: r.ReleaseChannels,
	})
	if err != nil {
		return nil, err
	}
	userMirrors, err := marshalList(r.UserMirrors)
	if err != nil {
		return nil, err
	}
	disabled, err := marshalList(r.DisabledMirrors)
	if err != nil {
		return nil, err
	}
	return []any{
		r.Address, string(data), r.Timestamp, string(r.FormatVersion), r.Certificate, r.Fingerprint,
		userMirrors, disabled, r.Weight, r.Enabled, r.LastUpdated, r.LastETag, r.LastError,
		r.Username, r.Password,
	}, nil
}

func marshalList[T any](list []T) (string, error) {
	if list == nil {
		list = []T{}
	}
	b, err := json.Marshal(list)
	return string(b), err
}

// GetRepositories returns all repositories ordered by descending weight.
func (q *Queries) GetRepositories(ctx context.Context) ([]model.Repository, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+repoColumns+` FROM repositories ORDER BY weight DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select repositories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var repos []model.Repository
	for rows.Next() {
		r, err := scanRepository(rows)
		if err != nil {
			return nil, err
		}
		repos = append(repos, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return repos, nil
}

// GetRepository returns the repository with the given id.
func (q *Queries) GetRepository(ctx context.Context, id int64) (model.Repository, error) {
	r, err := scanRepository(q.db.QueryRowContext(ctx, `SELECT `+repoColumns+` FROM repositories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Repository{}, pkgerrors.ErrRepositoryNotFoundWithID(id)
	}
	return r, err
}

// GetRepositoryByAddress returns the repository with the given canonical address.
func (q *Queries) GetRepositoryByAddress(ctx context.Context, address string) (model.Repository, error) {
	r, err := scanRepository(q.db.QueryRowContext(ctx, `SELECT `+repoColumns+` FROM repositories WHERE address = ?`, address))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Repository{}, fmt.Errorf("%w: %s", pkgerrors.ErrRepositoryNotFound, address)
	}
	return r, err
}

// InsertOrReplace stores r. A zero ID inserts a new row and returns its id; otherwise the
// row with that id is replaced.
func (q *Queries) InsertOrReplace(ctx context.Context, r model.Repository) (int64, error) {
	args, err := repositoryArgs(r)
	if err != nil {
		return 0, fmt.Errorf("failed to encode repository: %w", err)
	}
	if r.ID == 0 {
		res, err := q.db.ExecContext(ctx, `INSERT INTO repositories (address, data, timestamp, format_version,
			certificate, fingerprint, user_mirrors, disabled_mirrors, weight, enabled, last_updated,
			last_etag, last_error, username, password) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert repository: %w", err)
		}
		return res.LastInsertId()
	}
	res, err := q.db.ExecContext(ctx, `UPDATE repositories SET address = ?, data = ?, timestamp = ?,
		format_version = ?, certificate = ?, fingerprint = ?, user_mirrors = ?, disabled_mirrors = ?,
		weight = ?, enabled = ?, last_updated = ?, last_etag = ?, last_error = ?, username = ?,
		password = ? WHERE id = ?`, append(args, r.ID)...)
	if err != nil {
		return 0, fmt.Errorf("failed to update repository: %w", err)
	}
	if err := expectOne(res, r.ID); err != nil {
		return 0, err
	}
	return r.ID, nil
}

func expectOne(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return pkgerrors.ErrRepositoryNotFoundWithID(id)
	}
	return nil
}

func (q *Queries) execRepo(ctx context.Context, id int64, what, query string, args ...any) error {
	res, err := q.db.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	return expectOne(res, id)
}

// SetRepositoryEnabled enables or disables a repository. Disabling keeps its data.
func (q *Queries) SetRepositoryEnabled(ctx context.Context, id int64, enabled bool) error {
	return q.execRepo(ctx, id, "set repository enabled", `UPDATE repositories SET enabled = ? WHERE id = ?`, enabled)
}

// UpdateRepositoryCertificate stores the certificate pinned on first use.
func (q *Queries) UpdateRepositoryCertificate(ctx context.Context, id int64, certificate, fingerprint string) error {
	return q.execRepo(ctx, id, "update repository certificate",
		`UPDATE repositories SET certificate = ?, fingerprint = ? WHERE id = ?`, certificate, fingerprint)
}

// SetRepositoryError records the last error of a repository; an empty message clears it.
func (q *Queries) SetRepositoryError(ctx context.Context, id int64, message string) error {
	return q.execRepo(ctx, id, "set repository error", `UPDATE repositories SET last_error = ? WHERE id = ?`, message)
}

// MarkRepositoryUpdated records a successful sync at the given wall-clock time.
func (q *Queries) MarkRepositoryUpdated(ctx context.Context, id, lastUpdated int64, etag string) error {
	return q.execRepo(ctx, id, "mark repository updated",
		`UPDATE repositories SET last_updated = ?, last_etag = ?, last_error = '' WHERE id = ?`, lastUpdated, etag)
}

// DeleteRepository removes a repository with all its apps and versions.
func (q *Queries) DeleteRepository(ctx context.Context, id int64) error {
	return q.execRepo(ctx, id, "delete repository", `DELETE FROM repositories WHERE id = ?`)
}

// Clear removes the apps and versions of a repository and resets its sync state so that
// the next update fetches a full index.
func (q *Queries) Clear(ctx context.Context, id int64) error {
	if err := q.ClearPackages(ctx, id); err != nil {
		return err
	}
	return q.execRepo(ctx, id, "reset repository",
		`UPDATE repositories SET timestamp = 0, format_version = '', last_etag = '' WHERE id = ?`)
}

// ClearPackages removes the apps and versions of a repository and keeps its sync state.
func (q *Queries) ClearPackages(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM versions WHERE repo_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear versions: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, `DELETE FROM apps WHERE repo_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear apps: %w", err)
	}
	return nil
}

// ClearAll clears every repository.
func (q *Queries) ClearAll(ctx context.Context) error {
	for _, stmt := range []string{
		`DELETE FROM versions`,
		`DELETE FROM apps`,
		`UPDATE repositories SET timestamp = 0, format_version = '', last_etag = ''`,
	} {
		if _, err := q.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear catalog: %w", err)
		}
	}
	return nil
}
