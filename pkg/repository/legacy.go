package repository

import (
	"context"
	"errors"

	"github.com/cperrin88/reposync/internal/logger"
	"github.com/cperrin88/reposync/pkg/catalog"
	"github.com/cperrin88/reposync/pkg/download"
	"github.com/cperrin88/reposync/pkg/fsutil"
	"github.com/cperrin88/reposync/pkg/index"
	"github.com/cperrin88/reposync/pkg/jarsign"
	"github.com/cperrin88/reposync/pkg/model"
)

// updateLegacy fetches the signed index-v1.jar and replaces all packages of the repository.
func (r *run) updateLegacy(ctx context.Context) (Outcome, error) {
	jarPath := r.path(LegacyIndexJAR)
	if err := fsutil.RemoveIfExists(jarPath); err != nil {
		return OutcomeError, err
	}
	d := download.NewDownloader(r.u.client, r.request(model.File{Name: LegacyIndexJAR}), jarPath)
	d.SetCacheTag(r.repo.LastETag)
	d.SetProgress(r.downloadProgress(ctx))
	if err := d.Download(ctx); err != nil {
		return OutcomeError, err
	}
	defer func() { _ = fsutil.RemoveIfExists(jarPath) }()
	if !d.HasChanged() {
		return OutcomeUnchanged, nil
	}

	e, err := jarsign.Open(ctx, jarPath, LegacyIndex, jarsign.PolicyLegacy)
	if err != nil {
		return OutcomeError, err
	}
	defer func() { _ = e.Close() }()
	if err := checkCertificate(r.repo, e.Certificate, e.Fingerprint); err != nil {
		return OutcomeError, err
	}

	if err := r.startCommit(ctx); err != nil {
		return OutcomeError, err
	}
	err = r.commit(ctx, e.Certificate, e.Fingerprint, d.CacheTag(), func(ctx context.Context, tx *catalog.Queries) error {
		if err := tx.ClearPackages(ctx, r.repo.ID); err != nil {
			return err
		}
		p := index.NewLegacyProcessor(catalog.NewLegacyReceiver(ctx, tx, r.repo.ID), r.repo.Timestamp)
		p.SetProgress(r.commitProgress(0))
		if err := p.Process(ctx, e); err != nil {
			return err
		}
		// The content digest is only known once the whole entry was read.
		return e.Verify()
	})

	var old *index.OldIndexError
	if errors.As(err, &old) && old.SameTimestamp {
		logger.Debug("Legacy index has the stored timestamp", logger.Fields{"repo": r.repo.Address, "timestamp": old.Timestamp})
		return OutcomeUnchanged, nil
	}
	if err != nil {
		return OutcomeError, err
	}
	return OutcomeProcessed, nil
}
