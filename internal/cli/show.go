package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cperrin88/reposync/pkg/model"
)

type appView struct {
	PackageName string               `json:"packageName"`
	Name        string               `json:"name"`
	Summary     string               `json:"summary,omitempty"`
	License     string               `json:"license,omitempty"`
	WebSite     string               `json:"webSite,omitempty"`
	RepoID      int64                `json:"repoId"`
	Suggested   string               `json:"suggestedVersionId,omitempty"`
	Preferences model.AppPreferences `json:"preferences"`
	Versions    []model.AppVersion   `json:"versions"`
}

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show PACKAGE",
		Short: "Show an app and its versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, nil, func(a *app) error {
				found, err := a.catalog.App(ctx, args[0])
				if err != nil {
					return err
				}
				versions, err := a.catalog.AppVersions(ctx, args[0])
				if err != nil {
					return err
				}
				model.SortVersions(versions)
				prefs, err := a.catalog.AppPreferences(ctx, args[0])
				if err != nil {
					return err
				}

				locales := a.cfg.Settings.Locales
				v := appView{
					PackageName: found.PackageName,
					Name:        model.ChooseLocale(found.Metadata.Name, locales...),
					Summary:     model.ChooseLocale(found.Metadata.Summary, locales...),
					License:     found.Metadata.License,
					WebSite:     found.Metadata.WebSite,
					RepoID:      found.RepoID,
					Preferences: prefs,
					Versions:    versions,
				}
				if v.Name == "" {
					v.Name = found.PackageName
				}
				suggested, ok := a.checker.SuggestedVersion(versions, found.Metadata.PreferredSigner,
					a.cfg.Settings.ReleaseChannels, &prefs)
				if ok {
					v.Suggested = suggested.VersionID
				}

				if jsonOutput(a.cfg) {
					return printJSON(v)
				}
				printApp(v)
				return nil
			})
		},
	}
}

func printApp(v appView) {
	fmt.Printf("%s (%s)\n", v.Name, v.PackageName)
	if v.Summary != "" {
		fmt.Printf("  %s\n", v.Summary)
	}
	if v.License != "" {
		fmt.Printf("License: %s\n", v.License)
	}
	if v.WebSite != "" {
		fmt.Printf("Website: %s\n", v.WebSite)
	}
	switch {
	case v.Preferences.IgnoreAllUpdates:
		fmt.Println("Updates: ignored")
	case v.Preferences.IgnoreVersionCodeUpdate > 0:
		fmt.Printf("Updates: ignored up to version code %d\n", v.Preferences.IgnoreVersionCodeUpdate)
	}

	fmt.Println()
	tw := newTable()
	_, _ = fmt.Fprintln(tw, "VERSION\tCODE\tREPO\tSIZE\tADDED\t")
	for _, ver := range v.Versions {
		mark := ""
		if ver.VersionID == v.Suggested {
			mark = "suggested"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\n", ver.VersionName(), ver.VersionCode(), ver.RepoID,
			humanize.Bytes(uint64(max(ver.File.Size, 0))), formatMillis(ver.Added), mark)
	}
	_ = tw.Flush()
}
