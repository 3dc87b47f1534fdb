// Package repository updates a single repository from its mirrors into the catalog.
//
// An update runs through a small state machine:
//
//	idle -> connecting -> downloading -> committing -> processed
//	                 \             \              \-> unchanged | error | canceled
//
// The signed entry.jar of a v2 repository decides whether the full index or a diff against
// the stored timestamp is fetched. Repositories without entry.jar fall back to the legacy
// index-v1.jar. Every commit is a single catalog transaction.
package repository

import (
	"fmt"

	"github.com/cperrin88/reposync/pkg/model"
)

// Update states.
const (
	StateIdle        = "idle"
	StateConnecting  = "connecting"
	StateDownloading = "downloading"
	StateCommitting  = "committing"
	StateProcessed   = "processed"
	StateUnchanged   = "unchanged"
	StateError       = "error"
	StateCanceled    = "canceled"
)

// Update events.
const (
	EventConnect   = "connect"
	EventDownload  = "download"
	EventCommit    = "commit"
	EventProcessed = "processed"
	EventUnchanged = "unchanged"
	EventFail      = "fail"
	EventCancel    = "cancel"
)

// Index files published by a repository.
const (
	EntryJAR       = "entry.jar"
	EntryJSON      = "entry.json"
	LegacyIndexJAR = "index-v1.jar"
	LegacyIndex    = "index-v1.json"
)

// Outcome is the terminal result kind of an update.
type Outcome string

// Known outcomes. A canceled update is not a failure.
const (
	OutcomeProcessed Outcome = "processed"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeError     Outcome = "error"
	OutcomeCanceled  Outcome = "canceled"
)

// Result is the outcome of updating one repository. Err is set for OutcomeError and
// OutcomeCanceled.
type Result struct {
	RepoID  int64
	Repo    string
	Outcome Outcome
	Err     error
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %s: %v", r.Repo, r.Outcome, r.Err)
	}
	return fmt.Sprintf("%s: %s", r.Repo, r.Outcome)
}

// Progress reports the state of a running update. Percent covers the whole update: the
// download fills 0-50 and the commit 50-100. Totals are -1 (bytes) or 0 (packages) when
// unknown.
type Progress struct {
	RepoID     int64
	Repo       string
	State      string
	Percent    int
	BytesRead  int64
	TotalBytes int64
	Processed  int64
	Total      int64
}

// Hooks carries callbacks for progress notifications.
type Hooks struct {
	OnProgress func(Progress)
}

func (h Hooks) emit(p Progress) {
	if h.OnProgress != nil {
		h.OnProgress(p)
	}
}

func displayName(repo model.Repository) string {
	return repo.DisplayName()
}
