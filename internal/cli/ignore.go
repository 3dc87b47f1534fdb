package cli

import (
	"github.com/spf13/cobra"

	"github.com/cperrin88/reposync/internal/logger"
)

// NewIgnoreCmd creates the ignore command, which edits the update preferences of an app.
func NewIgnoreCmd() *cobra.Command {
	var (
		versionCode int64
		all         bool
		reset       bool
		channels    []string
	)

	cmd := &cobra.Command{
		Use:   "ignore PACKAGE",
		Short: "Ignore updates of an app",
		Long: `Ignore all updates of an app, or every update up to a version code.
--channels sets the release channels offered for this app in addition to the global ones.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, nil, func(a *app) error {
				prefs, err := a.catalog.AppPreferences(ctx, args[0])
				if err != nil {
					return err
				}
				switch {
				case reset:
					prefs.IgnoreAllUpdates = false
					prefs.IgnoreVersionCodeUpdate = 0
				case all:
					prefs.IgnoreAllUpdates = true
				case cmd.Flags().Changed("version"):
					prefs.IgnoreVersionCodeUpdate = versionCode
				}
				if cmd.Flags().Changed("channels") {
					prefs.ReleaseChannels = channels
				}
				if err := a.catalog.SetAppPreferences(ctx, prefs); err != nil {
					return err
				}
				logger.Success("App preferences updated", logger.Fields{
					"package":       prefs.PackageName,
					"ignoreAll":     prefs.IgnoreAllUpdates,
					"ignoreVersion": prefs.IgnoreVersionCodeUpdate,
				})
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&versionCode, "version", 0, "Ignore updates up to and including this version code")
	cmd.Flags().BoolVar(&all, "all", false, "Ignore all updates")
	cmd.Flags().BoolVar(&reset, "clear", false, "Stop ignoring updates")
	cmd.Flags().StringSliceVar(&channels, "channels", nil, "Release channels to offer for this app")
	cmd.MarkFlagsMutuallyExclusive("version", "all", "clear")

	return cmd
}
