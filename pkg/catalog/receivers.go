package catalog

import (
	"context"

	"github.com/cperrin88/reposync/internal/logger"
	"github.com/cperrin88/reposync/pkg/index"
	"github.com/cperrin88/reposync/pkg/model"
)

// receiver holds what all index receivers share: the transaction and the repository row
// the index is written into.
type receiver struct {
	ctx    context.Context
	q      *Queries
	repoID int64
}

func (r receiver) loadRepo() (model.Repository, error) {
	return r.q.GetRepository(r.ctx, r.repoID)
}

func (r receiver) saveRepo(repo model.Repository) error {
	_, err := r.q.InsertOrReplace(r.ctx, repo)
	return err
}

func (r receiver) storeVersions(packageName string, versions map[string]model.PackageVersion) error {
	for id, v := range versions {
		if err := r.q.UpsertVersion(r.ctx, r.repoID, packageName, id, v); err != nil {
			return err
		}
	}
	return nil
}

// FullReceiver writes a full v2 index. The repository's packages must have been cleared in
// the same transaction.
type FullReceiver struct {
	receiver
	packages int
}

var _ index.Receiver = (*FullReceiver)(nil)

// NewFullReceiver creates a receiver writing into repository repoID through q.
func NewFullReceiver(ctx context.Context, q *Queries, repoID int64) *FullReceiver {
	return &FullReceiver{receiver: receiver{ctx: ctx, q: q, repoID: repoID}}
}

// ReceiveRepo implements index.Receiver.
func (r *FullReceiver) ReceiveRepo(idx model.RepoIndex, _ int64) error {
	repo, err := r.loadRepo()
	if err != nil {
		return err
	}
	repo.ApplyIndex(idx)
	repo.FormatVersion = model.FormatV2
	return r.saveRepo(repo)
}

// ReceivePackage implements index.Receiver.
func (r *FullReceiver) ReceivePackage(packageName string, pkg model.Package) error {
	if err := r.q.UpsertApp(r.ctx, r.repoID, packageName, pkg.Metadata); err != nil {
		return err
	}
	r.packages++
	return r.storeVersions(packageName, pkg.Versions)
}

// OnStreamEnded implements index.Receiver.
func (r *FullReceiver) OnStreamEnded() error {
	logger.Debug("full index stored", logger.Fields{"repo": r.repoID, "packages": r.packages})
	return nil
}

// DiffReceiver applies a v2 diff on top of the stored index.
type DiffReceiver struct {
	receiver
}

var _ index.DiffReceiver = (*DiffReceiver)(nil)

// NewDiffReceiver creates a receiver patching repository repoID through q.
func NewDiffReceiver(ctx context.Context, q *Queries, repoID int64) *DiffReceiver {
	return &DiffReceiver{receiver{ctx: ctx, q: q, repoID: repoID}}
}

// ReceiveRepoDiff implements index.DiffReceiver.
func (r *DiffReceiver) ReceiveRepoDiff(patch index.RepoPatch, _ int64) error {
	repo, err := r.loadRepo()
	if err != nil {
		return err
	}
	idx, err := index.ApplyRepoPatch(repo.Index(), patch)
	if err != nil {
		return err
	}
	repo.ApplyIndex(idx)
	return r.saveRepo(repo)
}

// RemovePackage implements index.DiffReceiver.
func (r *DiffReceiver) RemovePackage(packageName string) error {
	if err := r.q.DeleteApp(r.ctx, r.repoID, packageName); err != nil {
		return err
	}
	return r.q.DeleteVersions(r.ctx, r.repoID, packageName)
}

// ReceiveMetadataDiff implements index.DiffReceiver. A package unknown so far must carry
// complete metadata.
func (r *DiffReceiver) ReceiveMetadataDiff(packageName string, patch index.MetadataPatch) error {
	var (
		m   model.Metadata
		err error
	)
	app, getErr := r.q.GetApp(r.ctx, r.repoID, packageName)
	switch {
	case getErr == nil:
		m, err = index.ApplyMetadataPatch(app.Metadata, patch)
	case isNotFound(getErr):
		m, err = index.NewMetadata(patch)
	default:
		return getErr
	}
	if err != nil {
		return err
	}
	return r.q.UpsertApp(r.ctx, r.repoID, packageName, m)
}

// RemoveMetadata implements index.DiffReceiver.
func (r *DiffReceiver) RemoveMetadata(packageName string) error {
	return r.q.DeleteApp(r.ctx, r.repoID, packageName)
}

// ReceiveVersionsDiff implements index.DiffReceiver.
func (r *DiffReceiver) ReceiveVersionsDiff(packageName string, patches map[string]*index.VersionPatch) error {
	stored, err := r.q.GetVersions(r.ctx, r.repoID, packageName)
	if err != nil {
		return err
	}
	upsert, remove, err := index.ApplyVersionsDiff(stored, patches)
	if err != nil {
		return err
	}
	for _, id := range remove {
		if err := r.q.DeleteVersion(r.ctx, r.repoID, packageName, id); err != nil {
			return err
		}
	}
	return r.storeVersions(packageName, upsert)
}

// RemoveAllVersions implements index.DiffReceiver.
func (r *DiffReceiver) RemoveAllVersions(packageName string) error {
	return r.q.DeleteVersions(r.ctx, r.repoID, packageName)
}

// OnStreamEnded implements index.DiffReceiver.
func (r *DiffReceiver) OnStreamEnded() error { return nil }

// LegacyReceiver writes a v1 index. The repository's packages must have been cleared in the
// same transaction.
type LegacyReceiver struct {
	receiver
}

var _ index.LegacyReceiver = (*LegacyReceiver)(nil)

// NewLegacyReceiver creates a receiver writing into repository repoID through q.
func NewLegacyReceiver(ctx context.Context, q *Queries, repoID int64) *LegacyReceiver {
	return &LegacyReceiver{receiver{ctx: ctx, q: q, repoID: repoID}}
}

// ReceiveRepo implements index.LegacyReceiver. The dictionaries arrive later through UpdateRepo.
func (r *LegacyReceiver) ReceiveRepo(idx model.RepoIndex, _ int64) error {
	repo, err := r.loadRepo()
	if err != nil {
		return err
	}
	idx.AntiFeatures, idx.Categories, idx.ReleaseChannels = repo.AntiFeatures, repo.Categories, repo.ReleaseChannels
	repo.ApplyIndex(idx)
	repo.FormatVersion = model.FormatV1
	return r.saveRepo(repo)
}

// ReceiveApp implements index.LegacyReceiver.
func (r *LegacyReceiver) ReceiveApp(packageName string, m model.Metadata) error {
	return r.q.UpsertApp(r.ctx, r.repoID, packageName, m)
}

// UpdateAppSigner implements index.LegacyReceiver.
func (r *LegacyReceiver) UpdateAppSigner(packageName, signer string) error {
	app, err := r.q.GetApp(r.ctx, r.repoID, packageName)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	app.Metadata.PreferredSigner = signer
	return r.q.UpsertApp(r.ctx, r.repoID, packageName, app.Metadata)
}

// ReceiveVersions implements index.LegacyReceiver.
func (r *LegacyReceiver) ReceiveVersions(packageName string, versions map[string]model.PackageVersion) error {
	return r.storeVersions(packageName, versions)
}

// UpdateRepo implements index.LegacyReceiver.
func (r *LegacyReceiver) UpdateRepo(antiFeatures map[string]model.AntiFeature, categories map[string]model.Category,
	releaseChannels map[string]model.ReleaseChannel) error {
	repo, err := r.loadRepo()
	if err != nil {
		return err
	}
	repo.AntiFeatures, repo.Categories, repo.ReleaseChannels = antiFeatures, categories, releaseChannels
	return r.saveRepo(repo)
}
