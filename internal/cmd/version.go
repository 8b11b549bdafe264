package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/storycard/storycard/internal/server/handlers"
)

var (
	extended    bool
	versionJSON bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for Crucible, Go and provider details, --json for the /version payload.",
	RunE: func(cmd *cobra.Command, args []string) error {
		handlers.SetAppIdentity(GetAppIdentity())
		handlers.SetMetadataProviders(providerNamesForConfig())
		return writeVersion(cmd.OutOrStdout(), handlers.BuildVersionResponse(), extended, versionJSON)
	},
}

func writeVersion(w io.Writer, resp handlers.VersionResponse, extended, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintf(w, "%s %s\n", resp.App.Name, resp.App.Version)
	if !extended {
		return nil
	}

	fmt.Fprintf(w, "Commit: %s\n", resp.App.Commit)
	fmt.Fprintf(w, "Built: %s\n", resp.App.BuildDate)
	fmt.Fprintf(w, "Go: %s\n", resp.App.GoVersion)
	fmt.Fprintf(w, "Platform: %s\n", resp.Runtime.Platform)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Gofulmen: %s\n", resp.Dependencies.Gofulmen)
	fmt.Fprintf(w, "Crucible: %s\n", resp.Dependencies.Crucible)
	if len(resp.Metadata.Providers) > 0 {
		fmt.Fprintf(w, "Metadata providers: %v\n", resp.Metadata.Providers)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "print the version payload as JSON")
}
