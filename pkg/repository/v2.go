package repository

import (
	"context"
	"encoding/json"
	"os"
	"path"

	"github.com/cperrin88/reposync/internal/logger"
	"github.com/cperrin88/reposync/pkg/catalog"
	"github.com/cperrin88/reposync/pkg/download"
	pkgerrors "github.com/cperrin88/reposync/pkg/errors"
	"github.com/cperrin88/reposync/pkg/fsutil"
	"github.com/cperrin88/reposync/pkg/index"
	"github.com/cperrin88/reposync/pkg/jarsign"
	"github.com/cperrin88/reposync/pkg/model"
)

// signedEntry is a verified entry document with the certificate it was signed with.
type signedEntry struct {
	model.Entry
	certificate string
	fingerprint string
}

// updateV2 fetches entry.jar and then either a diff against the stored timestamp or the full
// index.
func (r *run) updateV2(ctx context.Context) (Outcome, error) {
	entryPath := r.path(EntryJAR)
	if err := fsutil.RemoveIfExists(entryPath); err != nil {
		return OutcomeError, err
	}
	d := download.NewDownloader(r.u.client, r.request(model.File{Name: EntryJAR}), entryPath)
	d.SetCacheTag(r.repo.LastETag)
	if err := d.Download(ctx); err != nil {
		return OutcomeError, err
	}
	defer func() { _ = fsutil.RemoveIfExists(entryPath) }()
	if !d.HasChanged() {
		return OutcomeUnchanged, nil
	}

	entry, err := readEntry(ctx, entryPath)
	if err != nil {
		return OutcomeError, err
	}
	if err := checkCertificate(r.repo, entry.certificate, entry.fingerprint); err != nil {
		return OutcomeError, err
	}
	if r.repo.FormatVersion == model.FormatV2 && entry.Timestamp <= r.repo.Timestamp {
		logger.Debug("Repository entry is not newer", logger.Fields{"repo": r.repo.Address, "timestamp": entry.Timestamp})
		return OutcomeUnchanged, nil
	}

	file, isDiff := selectIndex(r.repo, entry.Entry)
	logger.Debug("Selected index file", logger.Fields{"repo": r.repo.Address, "file": file.Name, "diff": isDiff})

	if err := r.fire(ctx, EventDownload); err != nil {
		return OutcomeError, err
	}
	indexPath := r.path(cacheName(file.File))
	dl := download.NewDownloader(r.u.client, r.request(file.File), indexPath)
	dl.SetProgress(r.downloadProgress(ctx))
	if err := dl.Download(ctx); err != nil {
		return OutcomeError, err
	}

	if err := r.startCommit(ctx); err != nil {
		return OutcomeError, err
	}
	total := int64(file.NumPackages)
	err = r.commit(ctx, entry.certificate, entry.fingerprint, d.CacheTag(), func(ctx context.Context, tx *catalog.Queries) error {
		f, err := os.Open(indexPath)
		if err != nil {
			return Wrap(err, "open index")
		}
		defer func() { _ = f.Close() }()

		if isDiff {
			p := index.NewDiffProcessor(catalog.NewDiffReceiver(ctx, tx, r.repo.ID), entry.Version)
			p.SetProgress(r.commitProgress(total))
			return p.Process(ctx, f)
		}
		if err := tx.ClearPackages(ctx, r.repo.ID); err != nil {
			return err
		}
		p := index.NewStreamProcessor(catalog.NewFullReceiver(ctx, tx, r.repo.ID), entry.Version)
		p.SetProgress(r.commitProgress(total))
		return p.Process(ctx, f)
	})
	if err != nil {
		return OutcomeError, err
	}
	_ = fsutil.RemoveIfExists(indexPath)
	return OutcomeProcessed, nil
}

// selectIndex returns the diff leading from the stored timestamp when the repository was
// last synced from a v2 index and the entry offers one, and the full index otherwise.
func selectIndex(repo model.Repository, entry model.Entry) (model.EntryFile, bool) {
	if repo.FormatVersion == model.FormatV2 {
		if diff, ok := entry.Diff(repo.Timestamp); ok {
			return diff, true
		}
	}
	return entry.Index, false
}

// cacheName names a downloaded index after its hash so that a partial file is only ever
// resumed into the same content.
func cacheName(f model.File) string {
	if f.SHA256 != "" {
		return f.SHA256 + ".json"
	}
	return path.Base(f.Name)
}

func readEntry(ctx context.Context, jarPath string) (signedEntry, error) {
	e, err := jarsign.Open(ctx, jarPath, EntryJSON, jarsign.PolicyEntry)
	if err != nil {
		return signedEntry{}, err
	}
	defer func() { _ = e.Close() }()

	var entry model.Entry
	if err := json.NewDecoder(e).Decode(&entry); err != nil {
		return signedEntry{}, pkgerrors.ErrDecodef("%s: %v", EntryJSON, err)
	}
	if err := e.Verify(); err != nil {
		return signedEntry{}, err
	}
	return signedEntry{Entry: entry, certificate: e.Certificate, fingerprint: e.Fingerprint}, nil
}
