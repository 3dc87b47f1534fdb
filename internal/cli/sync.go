package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cperrin88/reposync/internal/logger"
	"github.com/cperrin88/reposync/pkg/orchestrator"
	"github.com/cperrin88/reposync/pkg/worker"
)

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	var retry bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Update all enabled repositories",
		Long: `Download the index of every enabled repository, store changes in the
catalog and report the app updates that became available.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, retry)
		},
	}

	cmd.Flags().BoolVar(&retry, "retry", false, "Retry failed passes with exponential backoff")

	return cmd
}

func runSync(cmd *cobra.Command, retry bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	var onEvent func(orchestrator.Event)
	if !jsonOutput(cfg) {
		onEvent = printEvent
	}

	a, err := openApp(cmd.Context(), cfg, onEvent)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var pass orchestrator.PassResult
	if retry {
		pass, err = worker.New(a.manager, worker.Options{}).RunOnce(cmd.Context())
	} else {
		pass, err = a.manager.UpdateRepos(cmd.Context())
	}
	if err != nil && len(pass.Results) == 0 {
		return err
	}

	if jsonOutput(cfg) {
		if err := printJSON(newPassView(pass)); err != nil {
			return err
		}
	} else {
		printPass(pass)
	}

	if err != nil {
		return err
	}
	if err := pass.Err(); err != nil {
		return fmt.Errorf("%d of %d repositories failed", len(pass.Failed()), len(pass.Results))
	}
	logger.Debug("Sync finished", logger.Fields{"repositories": len(pass.Results), "updates": len(pass.Updates)})
	return nil
}

type resultView struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

type passView struct {
	Skipped bool                             `json:"skipped,omitempty"`
	Results []resultView                     `json:"results"`
	Updates orchestrator.UpdatesNotification `json:"updates"`
}

func newPassView(pass orchestrator.PassResult) passView {
	v := passView{Skipped: pass.Skipped, Results: make([]resultView, 0, len(pass.Results))}
	for _, r := range pass.Results {
		rv := resultView{ID: r.RepoID, Name: r.Repo, Outcome: string(r.Outcome)}
		if r.Err != nil {
			rv.Error = r.Err.Error()
		}
		v.Results = append(v.Results, rv)
	}
	v.Updates = orchestrator.NewUpdatesNotification(pass.Updates)
	return v
}

func printPass(pass orchestrator.PassResult) {
	if pass.Skipped {
		fmt.Println("An update ran recently or is still running, nothing to do.")
		return
	}

	tw := newTable()
	_, _ = fmt.Fprintln(tw, "\nREPOSITORY\tRESULT\tERROR")
	for _, r := range pass.Results {
		msg := ""
		if r.Err != nil {
			msg = truncate(r.Err.Error(), MaxErrorLength)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Repo, r.Outcome, msg)
	}
	_ = tw.Flush()

	if len(pass.Updates) > 0 {
		fmt.Println()
		printUpdates(orchestrator.NewUpdatesNotification(pass.Updates))
	}
}
