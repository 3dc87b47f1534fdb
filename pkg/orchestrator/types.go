//go:generate mockgen -destination=./mocks/orchestrator.go . RepoUpdater,Repositories,UpdateScanner,CheckStore,Notifier

package orchestrator

import (
	"context"
	"time"

	"github.com/cperrin88/reposync/pkg/model"
	"github.com/cperrin88/reposync/pkg/repository"
	"github.com/cperrin88/reposync/pkg/update"
)

// RepoUpdater updates a single repository.
type RepoUpdater interface {
	Update(ctx context.Context, repo model.Repository, hooks repository.Hooks) repository.Result
}

// Repositories is the subset of the catalog used to enumerate repositories.
type Repositories interface {
	// GetRepositories returns all repositories in persisted order.
	GetRepositories(ctx context.Context) ([]model.Repository, error)
	GetRepository(ctx context.Context, id int64) (model.Repository, error)
}

// UpdateScanner finds app updates once new repository data arrived.
type UpdateScanner interface {
	Scan(ctx context.Context) ([]update.AvailableUpdate, error)
}

// CheckStore persists when the last update pass completed.
type CheckStore interface {
	LastChecked(ctx context.Context) (time.Time, error)
	SetLastChecked(ctx context.Context, t time.Time) error
}

// Notifier receives the updates found after a pass.
type Notifier interface {
	NotifyUpdates(ctx context.Context, n UpdatesNotification) error
}

// Event phases.
const (
	PhaseConnecting  = "connecting"
	PhaseDownloading = "downloading"
	PhaseCommitting  = "committing"
	PhaseDone        = "done"
	PhaseError       = "error"
	PhaseUpdates     = "updates"
)

// Event represents a simple progress notification.
type Event struct {
	Phase   string // connecting|downloading|committing|done|error|updates
	ID      string // repository name
	Msg     string
	Percent int
}

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
}

// AppSummary describes one available update in a notification.
type AppSummary struct {
	PackageName string `json:"packageName"`
	Name        string `json:"name"`
	FromVersion string `json:"fromVersion,omitempty"`
	ToVersion   string `json:"toVersion"`
	VersionCode int64  `json:"versionCode"`
}

// UpdatesNotification is handed to the Notifier when a pass surfaced updates.
type UpdatesNotification struct {
	Count int          `json:"count"`
	Apps  []AppSummary `json:"apps"`
}

// Options control the Manager.
type Options struct {
	// MinInterval suppresses passes started sooner than this after the previous start.
	MinInterval time.Duration
	// ParallelRepos above 1 updates that many repositories at once.
	ParallelRepos int
	Scanner       UpdateScanner
	Checks        CheckStore
	Notifier      Notifier
	Hooks         Hooks
	Now           func() time.Time
}
