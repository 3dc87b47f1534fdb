package cli

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cperrin88/reposync/internal/logger"
	"github.com/cperrin88/reposync/pkg/config"
	pkgerrors "github.com/cperrin88/reposync/pkg/errors"
	"github.com/cperrin88/reposync/pkg/model"
	"github.com/cperrin88/reposync/pkg/repository"
)

// NewRepoCmd creates the repo command with subcommands.
func NewRepoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Manage repositories",
		Long:  "Add, remove, list, and update repositories. REPO is an id, address or name.",
	}

	cmd.AddCommand(
		newRepoAddCmd(),
		newRepoRemoveCmd(),
		newRepoListCmd(),
		newRepoEnableCmd(true),
		newRepoEnableCmd(false),
		newRepoUpdateCmd(),
		newRepoClearCmd(),
		newRepoMirrorCmd(),
	)

	return cmd
}

type repoAddOptions struct {
	name        string
	fingerprint string
	username    string
	password    string
	mirrors     []string
	weight      int
	disabled    bool
	save        bool
}

func newRepoAddCmd() *cobra.Command {
	var opts repoAddOptions

	cmd := &cobra.Command{
		Use:   "add URL",
		Short: "Add a repository",
		Long: `Add a repository by address. A fingerprint=... query parameter, as found in
shared repository links, pins the signing certificate like --fingerprint does.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepoAdd(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "Repository name (taken from the index if not provided)")
	cmd.Flags().StringVar(&opts.fingerprint, "fingerprint", "", "SHA-256 fingerprint of the signing certificate")
	cmd.Flags().StringVar(&opts.username, "username", "", "Basic auth username")
	cmd.Flags().StringVar(&opts.password, "password", "", "Basic auth password")
	cmd.Flags().StringSliceVar(&opts.mirrors, "mirror", nil, "Additional mirror URL (repeatable)")
	cmd.Flags().IntVar(&opts.weight, "weight", 0, "Repository weight (higher wins when several repositories carry an app)")
	cmd.Flags().BoolVar(&opts.disabled, "disabled", false, "Add the repository disabled")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Also add the repository to the configuration file")

	return cmd
}

// parseRepoURL splits a repository link into its address and the fingerprint carried in
// its query, if any.
func parseRepoURL(raw string) (address, fingerprint string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", pkgerrors.ErrInvalidURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", "", fmt.Errorf("%w: %s", pkgerrors.ErrInvalidURL, raw)
	}
	q := u.Query()
	fingerprint = q.Get("fingerprint")
	if fingerprint == "" {
		fingerprint = q.Get("FINGERPRINT")
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), fingerprint, nil
}

func runRepoAdd(cmd *cobra.Command, raw string, opts repoAddOptions) error {
	address, fingerprint, err := parseRepoURL(raw)
	if err != nil {
		return err
	}
	if opts.fingerprint != "" {
		fingerprint = opts.fingerprint
	}

	enabled := !opts.disabled
	rc := &config.RepositoryConfig{
		Name:        opts.name,
		Address:     address,
		Fingerprint: fingerprint,
		Mirrors:     opts.mirrors,
		Enabled:     &enabled,
		Weight:      opts.weight,
	}
	if opts.username != "" {
		rc.Auth = &config.AuthConfig{BasicAuth: &config.BasicAuth{Username: opts.username, Password: opts.password}}
	}

	ctx := cmd.Context()
	return withApp(ctx, nil, func(a *app) error {
		_, err := a.catalog.GetRepositoryByAddress(ctx, address)
		switch {
		case err == nil:
			return pkgerrors.ErrRepositoryExistsWithName(address)
		case !errors.Is(err, pkgerrors.ErrRepositoryNotFound):
			return err
		}

		id, err := a.catalog.InsertOrReplace(ctx, rc.ToRepository())
		if err != nil {
			return err
		}
		if err := a.catalog.SetSetting(ctx, seededKeyPrefix+address, "1"); err != nil {
			return err
		}

		if opts.save {
			if rc.Name == "" {
				rc.Name = address
			}
			if err := a.cfg.AddRepository(rc); err != nil {
				return err
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			if err := a.cfg.SaveConfig(getConfigPath()); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}
		}

		logger.Success("Repository added", logger.Fields{"id": id, "address": address})
		return nil
	})
}

func newRepoRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove REPO",
		Aliases: []string{"rm"},
		Short:   "Remove a repository and its apps",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, nil, func(a *app) error {
				repo, err := a.findRepository(ctx, args[0])
				if err != nil {
					return err
				}
				if err := a.catalog.DeleteRepository(ctx, repo.ID); err != nil {
					return err
				}
				if _, err := a.cache.Clean(repo.ID); err != nil {
					logger.Warn("Failed to clean repository cache", logger.Fields{"id": repo.ID, "error": err.Error()})
				}

				for _, rc := range a.cfg.Repositories {
					if rc.NormalizedAddress() != repo.Address {
						continue
					}
					a.cfg.RemoveRepository(rc.Name)
					if err := a.cfg.SaveConfig(getConfigPath()); err != nil {
						return fmt.Errorf("failed to save configuration: %w", err)
					}
					break
				}

				logger.Success("Repository removed", logger.Fields{"id": repo.ID, "address": repo.Address})
				return nil
			})
		},
	}
}

type repoView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	Enabled     bool   `json:"enabled"`
	Weight      int    `json:"weight"`
	Format      string `json:"formatVersion,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	LastUpdated int64  `json:"lastUpdated,omitempty"`
	LastError   string `json:"lastError,omitempty"`
	Mirrors     int    `json:"mirrors"`
}

func newRepoView(r model.Repository, locales []string) repoView {
	return repoView{
		ID:          r.ID,
		Name:        r.DisplayName(locales...),
		Address:     r.Address,
		Enabled:     r.Enabled,
		Weight:      r.Weight,
		Format:      string(r.FormatVersion),
		Fingerprint: r.Fingerprint,
		LastUpdated: r.LastUpdated,
		LastError:   r.LastError,
		Mirrors:     len(r.EnabledMirrors()),
	}
}

func newRepoListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List repositories",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, nil, func(a *app) error {
				repos, err := a.catalog.GetRepositories(ctx)
				if err != nil {
					return err
				}
				views := make([]repoView, 0, len(repos))
				for _, r := range repos {
					views = append(views, newRepoView(r, a.cfg.Settings.Locales))
				}
				if jsonOutput(a.cfg) {
					return printJSON(views)
				}
				if len(views) == 0 {
					fmt.Println("No repositories configured.")
					return nil
				}

				tw := newTable()
				_, _ = fmt.Fprintln(tw, "ID\tNAME\tENABLED\tWEIGHT\tUPDATED\tERROR")
				for _, v := range views {
					_, _ = fmt.Fprintf(tw, "%d\t%s\t%t\t%d\t%s\t%s\n", v.ID, v.Name, v.Enabled, v.Weight,
						formatMillis(v.LastUpdated), truncate(v.LastError, MaxErrorLength))
				}
				return tw.Flush()
			})
		},
	}
}

func newRepoEnableCmd(enable bool) *cobra.Command {
	use, short := "enable REPO", "Enable a repository"
	if !enable {
		use, short = "disable REPO", "Disable a repository; its data is kept"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, nil, func(a *app) error {
				repo, err := a.findRepository(ctx, args[0])
				if err != nil {
					return err
				}
				if err := a.catalog.SetRepositoryEnabled(ctx, repo.ID, enable); err != nil {
					return err
				}
				logger.Success("Repository updated", logger.Fields{"id": repo.ID, "enabled": enable})
				return nil
			})
		},
	}
}

func newRepoUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update REPO",
		Short: "Update a single repository now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cfg, printEvent)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			repo, err := a.findRepository(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res, err := a.manager.UpdateRepo(cmd.Context(), repo.ID)
			if err != nil {
				return err
			}
			if res.Outcome == repository.OutcomeError || res.Outcome == repository.OutcomeCanceled {
				return res.Err
			}
			logger.Success("Repository updated", logger.Fields{"repo": res.Repo, "result": string(res.Outcome)})
			return nil
		},
	}
}

func newRepoClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear REPO",
		Short: "Drop the apps of a repository so that the next update fetches a full index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, nil, func(a *app) error {
				repo, err := a.findRepository(ctx, args[0])
				if err != nil {
					return err
				}
				if err := a.catalog.Clear(ctx, repo.ID); err != nil {
					return err
				}
				if _, err := a.cache.Clean(repo.ID); err != nil {
					return err
				}
				logger.Success("Repository cleared", logger.Fields{"id": repo.ID})
				return nil
			})
		},
	}
}

func newRepoMirrorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Manage repository mirrors",
	}

	cmd.AddCommand(
		newMirrorEditCmd("list REPO", "List the mirrors of a repository", listMirrors),
		newMirrorEditCmd("add REPO URL", "Add a user mirror", addUserMirror),
		newMirrorEditCmd("remove REPO URL", "Remove a user mirror", removeUserMirror),
		newMirrorEditCmd("enable REPO URL", "Enable a mirror", enableMirror),
		newMirrorEditCmd("disable REPO URL", "Disable a mirror", disableMirror),
	)

	return cmd
}

// mirrorEdit changes repo in place and reports whether it has to be stored.
type mirrorEdit func(repo *model.Repository, mirror string) (bool, error)

func newMirrorEditCmd(use, short string, edit mirrorEdit) *cobra.Command {
	nargs := len(strings.Fields(use)) - 1
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, nil, func(a *app) error {
				repo, err := a.findRepository(ctx, args[0])
				if err != nil {
					return err
				}
				mirror := ""
				if len(args) > 1 {
					mirror = strings.TrimRight(strings.TrimSpace(args[1]), "/")
				}
				changed, err := edit(&repo, mirror)
				if err != nil || !changed {
					return err
				}
				if _, err := a.catalog.InsertOrReplace(ctx, repo); err != nil {
					return err
				}
				logger.Success("Repository mirrors updated", logger.Fields{"id": repo.ID, "mirror": mirror})
				return nil
			})
		},
	}
}

func listMirrors(repo *model.Repository, _ string) (bool, error) {
	enabled := repo.EnabledMirrors()
	isEnabled := func(u string) bool {
		return slices.ContainsFunc(enabled, func(m model.Mirror) bool { return m.BaseURL == u })
	}

	tw := newTable()
	_, _ = fmt.Fprintln(tw, "URL\tLOCATION\tUSER\tENABLED")
	all := append([]model.Mirror{{BaseURL: repo.Address}}, repo.Mirrors...)
	for _, m := range append(all, repo.UserMirrors...) {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%t\t%t\n", m.BaseURL, m.Location, m.IsUserMirror, isEnabled(m.BaseURL))
	}
	return false, tw.Flush()
}

func addUserMirror(repo *model.Repository, mirror string) (bool, error) {
	if _, _, err := parseRepoURL(mirror); err != nil {
		return false, err
	}
	if slices.ContainsFunc(repo.UserMirrors, func(m model.Mirror) bool { return m.BaseURL == mirror }) {
		return false, nil
	}
	repo.UserMirrors = append(repo.UserMirrors, model.Mirror{BaseURL: mirror, IsUserMirror: true, Enabled: true})
	return true, nil
}

func removeUserMirror(repo *model.Repository, mirror string) (bool, error) {
	n := len(repo.UserMirrors)
	repo.UserMirrors = slices.DeleteFunc(repo.UserMirrors, func(m model.Mirror) bool { return m.BaseURL == mirror })
	if len(repo.UserMirrors) == n {
		return false, fmt.Errorf("%s is not a user mirror of %s", mirror, repo.Address)
	}
	return true, nil
}

func enableMirror(repo *model.Repository, mirror string) (bool, error) {
	n := len(repo.DisabledMirrors)
	repo.DisabledMirrors = slices.DeleteFunc(repo.DisabledMirrors, func(m string) bool {
		return strings.TrimRight(m, "/") == mirror
	})
	return len(repo.DisabledMirrors) != n, nil
}

func disableMirror(repo *model.Repository, mirror string) (bool, error) {
	if slices.Contains(repo.DisabledMirrors, mirror) {
		return false, nil
	}
	repo.DisabledMirrors = append(repo.DisabledMirrors, mirror)
	return true, nil
}
