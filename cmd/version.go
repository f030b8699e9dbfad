package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/muonblog/mycoserve/internal/version"
	"github.com/spf13/cobra"
)

var (
	versionFormat string
	versionShort  bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for mycoserve including:

- Version number
- Git commit hash
- Build timestamp
- Go version used for compilation
- Target platform (OS/architecture)

Examples:
  mycoserve version               # Show version info
  mycoserve version --short       # Show the version only
  mycoserve version --format json # Output as JSON`,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	EnumVarP(versionCmd.Flags(), &versionFormat, "format", "f", "text",
		[]string{"text", "json"}, "Output format")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	return writeVersion(cmd.OutOrStdout(), version.Get(), versionFormat, versionShort)
}

func writeVersion(w io.Writer, info *version.BuildInfo, format string, short bool) error {
	switch format {
	case "json":
		out := struct {
			*version.BuildInfo
			IsRelease bool `json:"is_release"`
		}{info, info.IsRelease()}

		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	case "text":
		if short {
			_, err := fmt.Fprintln(w, info.Short())
			return err
		}
		_, err := fmt.Fprintln(w, info.Detailed())
		return err
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json)", format)
	}
}
