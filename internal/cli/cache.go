package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cperrin88/reposync/internal/logger"
)

// NewCacheCmd creates the cache command with subcommands.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the index download cache",
	}

	cmd.AddCommand(
		newCacheInfoCmd(),
		newCacheCleanCmd(),
	)

	return cmd
}

func newCacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache usage per repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), nil, func(a *app) error {
				info, err := a.cache.GetInfo()
				if err != nil {
					return err
				}
				if jsonOutput(a.cfg) {
					return printJSON(info)
				}

				fmt.Printf("Directory: %s\n", info.Directory)
				fmt.Printf("Total:     %s (%d files)\n\n", humanize.Bytes(uint64(info.TotalSize)), info.Files)
				tw := newTable()
				_, _ = fmt.Fprintln(tw, "REPO\tSIZE\tFILES")
				for _, r := range info.Repositories {
					_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\n", r.RepoID, humanize.Bytes(uint64(r.Size)), r.Files)
				}
				return tw.Flush()
			})
		},
	}
}

func newCacheCleanCmd() *cobra.Command {
	var orphaned bool

	cmd := &cobra.Command{
		Use:   "clean [REPO...]",
		Short: "Remove cached index files",
		Long: `Remove the cached index files of the given repositories, or of all repositories.
With --orphaned only files of repositories that no longer exist are removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, nil, func(a *app) error {
				if orphaned {
					repos, err := a.catalog.GetRepositories(ctx)
					if err != nil {
						return err
					}
					known := make(map[int64]bool, len(repos))
					for _, r := range repos {
						known[r.ID] = true
					}
					result, err := a.cache.Prune(func(id int64) bool { return known[id] })
					if err != nil {
						return err
					}
					logger.Success("Cache cleaned", logger.Fields{"repositories": result.Repositories, "freed": humanize.Bytes(uint64(result.Freed))})
					return nil
				}

				var ids []int64
				for _, ref := range args {
					repo, err := a.findRepository(ctx, ref)
					if err != nil {
						return err
					}
					ids = append(ids, repo.ID)
				}
				result, err := a.cache.Clean(ids...)
				if err != nil {
					return err
				}
				logger.Success("Cache cleaned", logger.Fields{"repositories": result.Repositories, "freed": humanize.Bytes(uint64(result.Freed))})
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&orphaned, "orphaned", false, "Only remove files of deleted repositories")

	return cmd
}
