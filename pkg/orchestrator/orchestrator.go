// Package orchestrator runs update passes over all enabled repositories. It guarantees a
// single running pass, aggregates per-repository failures and triggers the update scan
// once new data arrived.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/cperrin88/reposync/internal/logger"
	"github.com/cperrin88/reposync/pkg/metrics"
	"github.com/cperrin88/reposync/pkg/model"
	"github.com/cperrin88/reposync/pkg/observable"
	"github.com/cperrin88/reposync/pkg/repository"
	"github.com/cperrin88/reposync/pkg/update"
)

// DefaultMinInterval is the minimum time between the starts of two update passes.
const DefaultMinInterval = 15 * time.Second

// ErrUpdateRunning is returned by UpdateRepo while another update is in progress.
var ErrUpdateRunning = errors.New("an update is already running")

// PassResult is the outcome of an update pass.
type PassResult struct {
	// Skipped is set when the pass did not run because another one was running or the
	// previous one started too recently.
	Skipped bool
	Results []repository.Result
	Updates []update.AvailableUpdate
}

// Changed reports whether any repository committed new data.
func (p PassResult) Changed() bool {
	for _, r := range p.Results {
		if r.Outcome == repository.OutcomeProcessed {
			return true
		}
	}
	return false
}

// Failed returns the repositories that failed. Canceled updates are not failures.
func (p PassResult) Failed() []repository.Result {
	var out []repository.Result
	for _, r := range p.Results {
		if r.Outcome == repository.OutcomeError {
			out = append(out, r)
		}
	}
	return out
}

// Err joins the failures of the pass, nil when every repository succeeded.
func (p PassResult) Err() error {
	var errs []error
	for _, r := range p.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", r.Repo, r.Err))
	}
	return errors.Join(errs...)
}

// Manager owns the update state of the process.
type Manager struct {
	repos   Repositories
	updater RepoUpdater
	opts    Options

	running    atomic.Bool
	mu         sync.Mutex
	lastStart  time.Time
	isUpdating *observable.Value[bool]
	progress   *observable.Value[repository.Progress]
}

// NewManager creates a Manager.
func NewManager(repos Repositories, updater RepoUpdater, opts Options) *Manager {
	if opts.MinInterval == 0 {
		opts.MinInterval = DefaultMinInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		repos:      repos,
		updater:    updater,
		opts:       opts,
		isUpdating: observable.New(false),
		progress:   observable.New(repository.Progress{State: repository.StateIdle}),
	}
}

// IsUpdating reports whether an update is running.
func (m *Manager) IsUpdating() *observable.Value[bool] { return m.isUpdating }

// Progress is the progress of the repository currently being updated.
func (m *Manager) Progress() *observable.Value[repository.Progress] { return m.progress }

func (m *Manager) emit(e Event) {
	if m.opts.Hooks.OnEvent != nil {
		m.opts.Hooks.OnEvent(e)
	}
}

// UpdateRepos updates every enabled repository. A call while a pass is running, or within
// MinInterval of the previous pass start, returns a skipped result without doing anything.
// Failing repositories do not stop the pass; their errors are reported once at the end.
func (m *Manager) UpdateRepos(ctx context.Context) (PassResult, error) {
	if !m.running.CompareAndSwap(false, true) {
		logger.Info("Update already in progress, skipping")
		return PassResult{Skipped: true}, nil
	}
	defer m.running.Store(false)

	start := m.opts.Now()
	if !m.claimInterval(start) {
		logger.Info("Last update started recently, skipping", logger.Fields{"interval": m.opts.MinInterval.String()})
		return PassResult{Skipped: true}, nil
	}

	m.isUpdating.Set(true)
	defer m.isUpdating.Set(false)
	defer func() { metrics.ObservePass(m.opts.Now().Sub(start)) }()

	all, err := m.repos.GetRepositories(ctx)
	if err != nil {
		return PassResult{}, fmt.Errorf("failed to list repositories: %w", err)
	}
	var enabled []model.Repository
	for _, r := range all {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	logger.Info("Updating repositories", logger.Fields{"enabled": len(enabled), "total": len(all)})

	pass := PassResult{Results: m.updateAll(ctx, enabled)}
	if err := ctx.Err(); err != nil {
		return pass, err
	}

	if err := m.recordCheck(ctx, pass.Changed()); err != nil {
		logger.Warn("Could not record update check", logger.Fields{"error": err.Error()})
	}
	if pass.Changed() {
		if pass.Updates, err = m.scan(ctx); err != nil {
			return pass, err
		}
	}
	m.report(pass)
	return pass, nil
}

// UpdateRepo updates a single repository regardless of the pass interval. It does not
// retry and reports failures in the returned Result.
func (m *Manager) UpdateRepo(ctx context.Context, id int64) (repository.Result, error) {
	if !m.running.CompareAndSwap(false, true) {
		return repository.Result{}, ErrUpdateRunning
	}
	defer m.running.Store(false)

	repo, err := m.repos.GetRepository(ctx, id)
	if err != nil {
		return repository.Result{}, err
	}

	m.isUpdating.Set(true)
	defer m.isUpdating.Set(false)

	res := m.updateOne(ctx, repo)
	switch res.Outcome {
	case repository.OutcomeProcessed:
		if _, err := m.scan(ctx); err != nil {
			return res, err
		}
	case repository.OutcomeError:
		m.emit(Event{Phase: PhaseError, ID: res.Repo, Msg: res.Err.Error()})
	}
	return res, nil
}

func (m *Manager) claimInterval(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.lastStart.IsZero() && now.Sub(m.lastStart) < m.opts.MinInterval {
		return false
	}
	m.lastStart = now
	return true
}

// updateAll runs the repositories in persisted order, or in a bounded group when
// ParallelRepos is set. Results keep the order of repos either way.
func (m *Manager) updateAll(ctx context.Context, repos []model.Repository) []repository.Result {
	results := make([]repository.Result, len(repos))
	if m.opts.ParallelRepos <= 1 {
		for i, repo := range repos {
			results[i] = m.updateOne(ctx, repo)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(m.opts.ParallelRepos)
	for i, repo := range repos {
		g.Go(func() error {
			results[i] = m.updateOne(ctx, repo)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (m *Manager) updateOne(ctx context.Context, repo model.Repository) repository.Result {
	if err := ctx.Err(); err != nil {
		return repository.Result{RepoID: repo.ID, Repo: repo.DisplayName(), Outcome: repository.OutcomeCanceled, Err: err}
	}
	return m.updater.Update(ctx, repo, repository.Hooks{OnProgress: m.onProgress})
}

func (m *Manager) onProgress(p repository.Progress) {
	m.progress.Set(p)
	if phase, msg, ok := describe(p); ok {
		m.emit(Event{Phase: phase, ID: p.Repo, Msg: msg, Percent: p.Percent})
	}
}

// describe renders a progress report as an event. Terminal states are reported by the pass.
func describe(p repository.Progress) (phase, msg string, ok bool) {
	switch p.State {
	case repository.StateConnecting:
		return PhaseConnecting, fmt.Sprintf("Connecting to %s", p.Repo), true
	case repository.StateDownloading:
		if p.TotalBytes > 0 {
			return PhaseDownloading, fmt.Sprintf("Downloading %s (%s / %s)", p.Repo,
				humanize.Bytes(uint64(p.BytesRead)), humanize.Bytes(uint64(p.TotalBytes))), true
		}
		return PhaseDownloading, fmt.Sprintf("Downloading %s (%s)", p.Repo, humanize.Bytes(uint64(max(p.BytesRead, 0)))), true
	case repository.StateCommitting:
		if p.Total > 0 {
			return PhaseCommitting, fmt.Sprintf("Saving %s (%d of %d)", p.Repo, p.Processed, p.Total), true
		}
		if p.Processed > 0 {
			return PhaseCommitting, fmt.Sprintf("Saving %s (%d packages)", p.Repo, p.Processed), true
		}
		return PhaseCommitting, fmt.Sprintf("Saving %s", p.Repo), true
	default:
		return "", "", false
	}
}

// recordCheck stores the pass time. A first pass that changed nothing is not recorded so
// that it is retried promptly.
func (m *Manager) recordCheck(ctx context.Context, changed bool) error {
	if m.opts.Checks == nil {
		return nil
	}
	last, err := m.opts.Checks.LastChecked(ctx)
	if err != nil {
		return err
	}
	if !changed && last.IsZero() {
		return nil
	}
	return m.opts.Checks.SetLastChecked(ctx, m.opts.Now())
}

// scan looks for app updates and notifies about them.
func (m *Manager) scan(ctx context.Context) ([]update.AvailableUpdate, error) {
	if m.opts.Scanner == nil {
		return nil, nil
	}
	updates, err := m.opts.Scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("update scan failed: %w", err)
	}
	metrics.SetUpdatesAvailable(len(updates))
	if len(updates) == 0 {
		return nil, nil
	}

	n := NewUpdatesNotification(updates)
	m.emit(Event{Phase: PhaseUpdates, Msg: fmt.Sprintf("%d updates available", n.Count)})
	if m.opts.Notifier != nil {
		if err := m.opts.Notifier.NotifyUpdates(ctx, n); err != nil {
			logger.Warn("Update notification failed", logger.Fields{"error": err.Error()})
		}
	}
	return updates, nil
}

// report logs the pass summary and emits one error event for all failed repositories.
func (m *Manager) report(pass PassResult) {
	failed := pass.Failed()
	fields := logger.Fields{"repositories": len(pass.Results), "failed": len(failed), "updates": len(pass.Updates)}
	if len(failed) == 0 {
		logger.Success("Update pass finished", fields)
		m.emit(Event{Phase: PhaseDone, Percent: 100})
		return
	}

	lines := make([]string, 0, len(failed))
	for _, r := range failed {
		lines = append(lines, fmt.Sprintf("%s: %v", r.Repo, r.Err))
	}
	fields["errors"] = strings.Join(lines, "; ")
	logger.Warn("Update pass finished with errors", fields)
	m.emit(Event{Phase: PhaseError, Msg: strings.Join(lines, "\n")})
}

// NewUpdatesNotification summarizes updates for the notification collaborator.
func NewUpdatesNotification(updates []update.AvailableUpdate) UpdatesNotification {
	n := UpdatesNotification{Count: len(updates), Apps: make([]AppSummary, 0, len(updates))}
	for _, u := range updates {
		name := u.Name
		if name == "" {
			name = u.PackageName
		}
		n.Apps = append(n.Apps, AppSummary{
			PackageName: u.PackageName,
			Name:        name,
			FromVersion: u.InstalledVersionName,
			ToVersion:   u.Update.VersionName(),
			VersionCode: u.Update.VersionCode(),
		})
	}
	return n
}
