package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cperrin88/reposync/internal/logger"
	"github.com/cperrin88/reposync/pkg/jarsign"
	"github.com/cperrin88/reposync/pkg/model"
)

// NewInstalledCmd creates the installed command with subcommands. The installed apps are
// the snapshot update checks compare against.
func NewInstalledCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "installed",
		Short: "Manage the installed apps snapshot",
	}

	cmd.AddCommand(
		newInstalledSetCmd(),
		newInstalledRemoveCmd(),
		newInstalledListCmd(),
	)

	return cmd
}

func newInstalledSetCmd() *cobra.Command {
	var versionName, signer string

	cmd := &cobra.Command{
		Use:   "set PACKAGE VERSION_CODE",
		Short: "Record an installed app",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || code < 0 {
				return fmt.Errorf("invalid version code: %s", args[1])
			}
			inst := model.InstalledApp{
				PackageName: args[0],
				VersionCode: code,
				VersionName: versionName,
				Signer:      jarsign.NormalizeFingerprint(signer),
			}
			return withApp(cmd.Context(), nil, func(a *app) error {
				if err := a.catalog.SetInstalledApp(cmd.Context(), inst); err != nil {
					return err
				}
				logger.Success("Installed app recorded", logger.Fields{"package": inst.PackageName, "versionCode": code})
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&versionName, "version-name", "", "Installed version name")
	cmd.Flags().StringVar(&signer, "signer", "", "SHA-256 of the installed signing certificate")

	return cmd
}

func newInstalledRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove PACKAGE",
		Short: "Forget an installed app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), nil, func(a *app) error {
				if err := a.catalog.RemoveInstalledApp(cmd.Context(), args[0]); err != nil {
					return err
				}
				logger.Success("Installed app removed", logger.Fields{"package": args[0]})
				return nil
			})
		},
	}
}

func newInstalledListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed apps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), nil, func(a *app) error {
				apps, err := a.catalog.InstalledApps(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput(a.cfg) {
					if apps == nil {
						apps = []model.InstalledApp{}
					}
					return printJSON(apps)
				}
				if len(apps) == 0 {
					fmt.Println("No installed apps recorded.")
					return nil
				}
				tw := newTable()
				_, _ = fmt.Fprintln(tw, "PACKAGE\tVERSION\tCODE\tSIGNER")
				for _, inst := range apps {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", inst.PackageName, inst.VersionName, inst.VersionCode, truncate(inst.Signer, 16))
				}
				return tw.Flush()
			})
		},
	}
}
