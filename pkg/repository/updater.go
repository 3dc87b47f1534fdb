package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/looplab/fsm"

	"github.com/cperrin88/reposync/internal/logger"
	"github.com/cperrin88/reposync/pkg/auth"
	"github.com/cperrin88/reposync/pkg/catalog"
	"github.com/cperrin88/reposync/pkg/download"
	pkgerrors "github.com/cperrin88/reposync/pkg/errors"
	"github.com/cperrin88/reposync/pkg/metrics"
	"github.com/cperrin88/reposync/pkg/model"
)

// Catalog is the subset of the catalog an Updater writes to.
type Catalog interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx *catalog.Queries) error) error
	WALCheckpoint(ctx context.Context) error
	SetRepositoryError(ctx context.Context, id int64, message string) error
}

// Options configure an Updater.
type Options struct {
	// CacheDir keeps downloaded index files so that an interrupted download can resume.
	CacheDir string
	// Credentials override the stored basic auth, keyed by repository address.
	Credentials map[string]auth.Authenticator
	Now         func() time.Time
}

// Updater brings single repositories up to date. Concurrent calls are fine as long as no
// repository is updated twice at the same time.
type Updater struct {
	catalog     Catalog
	client      download.Client
	cacheDir    string
	credentials map[string]auth.Authenticator
	now         func() time.Time
}

// NewUpdater creates an Updater.
func NewUpdater(c Catalog, client download.Client, opts Options) *Updater {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Updater{
		catalog:     c,
		client:      client,
		cacheDir:    opts.CacheDir,
		credentials: opts.Credentials,
		now:         opts.Now,
	}
}

// Update fetches repo from its mirrors and commits the result into the catalog, reporting
// progress to hooks. Failures are returned in the Result and recorded as the repository's
// last error; a canceled update records nothing.
func (u *Updater) Update(ctx context.Context, repo model.Repository, hooks Hooks) Result {
	fields := logger.Fields{"repo": repo.Address, "id": repo.ID}
	if !repo.Enabled {
		return Result{RepoID: repo.ID, Repo: displayName(repo), Outcome: OutcomeError, Err: ErrRepositoryDisabled}
	}

	start := u.now()
	r := newRun(u, repo, hooks)
	outcome, err := r.execute(ctx)
	res := Result{RepoID: repo.ID, Repo: displayName(repo), Outcome: outcome, Err: err}
	metrics.IncRepoResult(string(outcome))

	fields["result"] = string(outcome)
	fields["duration"] = u.now().Sub(start).String()
	switch outcome {
	case OutcomeError:
		fields["error"] = err.Error()
		logger.Warn("Repository update failed", fields)
		if err := u.catalog.SetRepositoryError(context.WithoutCancel(ctx), repo.ID, err.Error()); err != nil {
			logger.Warn("Could not record repository error", logger.Fields{"repo": repo.Address, "error": err.Error()})
		}
	case OutcomeCanceled:
		logger.Info("Repository update canceled", fields)
	default:
		logger.Info("Repository update finished", fields)
	}
	return res
}

// run is the state of one Update call.
type run struct {
	u        *Updater
	repo     model.Repository
	hooks    Hooks
	machine  *fsm.FSM
	throttle commitThrottle
}

func newRun(u *Updater, repo model.Repository, hooks Hooks) *run {
	r := &run{u: u, repo: repo, hooks: hooks, throttle: commitThrottle{now: u.now}}
	active := []string{StateConnecting, StateDownloading, StateCommitting}
	r.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: EventConnect, Src: []string{StateIdle}, Dst: StateConnecting},
			{Name: EventDownload, Src: []string{StateConnecting}, Dst: StateDownloading},
			{Name: EventCommit, Src: []string{StateDownloading}, Dst: StateCommitting},
			{Name: EventProcessed, Src: []string{StateCommitting}, Dst: StateProcessed},
			{Name: EventUnchanged, Src: active, Dst: StateUnchanged},
			{Name: EventFail, Src: active, Dst: StateError},
			{Name: EventCancel, Src: active, Dst: StateCanceled},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				logger.Debug("Repository update state changed", logger.Fields{"repo": repo.Address, "from": e.Src, "to": e.Dst})
				r.emit(Progress{State: e.Dst, Percent: statePercent(e.Dst)})
			},
		},
	)
	return r
}

func statePercent(state string) int {
	switch state {
	case StateCommitting:
		return 50
	case StateProcessed, StateUnchanged:
		return 100
	default:
		return 0
	}
}

func (r *run) emit(p Progress) {
	p.RepoID = r.repo.ID
	p.Repo = displayName(r.repo)
	r.hooks.emit(p)
}

// fire moves the state machine. Transitions are bookkeeping and run even after ctx is done.
func (r *run) fire(ctx context.Context, event string) error {
	if err := r.machine.Event(context.WithoutCancel(ctx), event); err != nil {
		return fmt.Errorf("%s in state %s: %w: %w", event, r.machine.Current(), ErrUnexpectedState, err)
	}
	return nil
}

func (r *run) execute(ctx context.Context) (Outcome, error) {
	if err := r.fire(ctx, EventConnect); err != nil {
		return OutcomeError, err
	}
	outcome, err := r.updateV2(ctx)
	if errors.Is(err, pkgerrors.ErrNotFound) && r.repo.FormatVersion != model.FormatV2 {
		logger.Info("Repository has no entry point, trying legacy index", logger.Fields{"repo": r.repo.Address})
		outcome, err = r.updateLegacy(ctx)
	}

	switch {
	case err != nil && pkgerrors.IsCanceled(err):
		_ = r.fire(ctx, EventCancel)
		return OutcomeCanceled, err
	case err != nil:
		_ = r.fire(ctx, EventFail)
		return OutcomeError, err
	case outcome == OutcomeUnchanged:
		if err := r.fire(ctx, EventUnchanged); err != nil {
			return OutcomeError, err
		}
		return OutcomeUnchanged, nil
	default:
		if err := r.fire(ctx, EventProcessed); err != nil {
			return OutcomeError, err
		}
		return OutcomeProcessed, nil
	}
}

func (r *run) request(file model.File) download.Request {
	a, ok := r.u.credentials[r.repo.Address]
	if !ok {
		a = auth.ForRepository(r.repo.Username, r.repo.Password)
	}
	return download.Request{
		File:    file,
		Mirrors: r.repo.EnabledMirrors(),
		Auth:    a,
	}
}

func (r *run) path(name string) string {
	return filepath.Join(r.u.cacheDir, strconv.FormatInt(r.repo.ID, 10), name)
}

// downloadProgress forwards byte progress. The first report moves a connecting update into
// the downloading state.
func (r *run) downloadProgress(ctx context.Context) download.ProgressFunc {
	return func(bytesRead, totalBytes int64) {
		if r.machine.Can(EventDownload) {
			_ = r.fire(ctx, EventDownload)
		}
		r.emit(Progress{
			State:      StateDownloading,
			Percent:    downloadPercent(bytesRead, totalBytes),
			BytesRead:  bytesRead,
			TotalBytes: totalBytes,
		})
	}
}

func (r *run) commitProgress(total int64) func(int64) {
	return func(processed int64) {
		if !r.throttle.allow(processed, total) {
			return
		}
		r.emit(Progress{
			State:     StateCommitting,
			Percent:   commitPercent(processed, total),
			Processed: processed,
			Total:     total,
		})
	}
}

// startCommit enters the committing state, passing through downloading when no byte
// progress was reported.
func (r *run) startCommit(ctx context.Context) error {
	if r.machine.Can(EventDownload) {
		if err := r.fire(ctx, EventDownload); err != nil {
			return err
		}
	}
	return r.fire(ctx, EventCommit)
}

// commit runs process in one transaction together with the certificate and bookkeeping
// updates, so a failed commit leaves the repository untouched.
func (r *run) commit(ctx context.Context, certificate, fingerprint, etag string,
	process func(ctx context.Context, tx *catalog.Queries) error) error {
	err := r.u.catalog.WithTx(ctx, func(ctx context.Context, tx *catalog.Queries) error {
		if r.repo.Certificate == "" {
			logger.Info("Trusting repository certificate", logger.Fields{"repo": r.repo.Address, "fingerprint": fingerprint})
			if err := tx.UpdateRepositoryCertificate(ctx, r.repo.ID, certificate, fingerprint); err != nil {
				return err
			}
		}
		if err := process(ctx, tx); err != nil {
			return err
		}
		return tx.MarkRepositoryUpdated(ctx, r.repo.ID, r.u.now().UnixMilli(), etag)
	})
	if err != nil {
		return err
	}
	if err := r.u.catalog.WALCheckpoint(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("WAL checkpoint failed", logger.Fields{"error": err.Error()})
	}
	return nil
}
