package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/cli/ui"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/config"
)

// rootCmd is the root command
var rootCmd = &cobra.Command{
	Use:     "swarmpal",
	Short:   "SwarmPAL satellite data processing CLI",
	Version: config.GetVersion(),
	Long: `A command-line tool for running SwarmPAL processing pipelines without the
dashboard UI. Takes the YAML configuration a dashboard exports, fetches the
datasets, applies the processing chain and writes the result to a file.`,
	Example: `  # Run a pipeline exported from a dashboard
  $ swarmpal batch config.yml

  # Write JSON instead of Parquet
  $ swarmpal batch config.yml --format json --output result.json`,
}

// Execute executes the root command
func Execute() error {
	rootCmd.SetVersionTemplate(formatVersion())
	return rootCmd.Execute()
}

func init() {
	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(versionCmd)

	// Set custom template with bold uppercase headers
	rootCmd.SetUsageTemplate(usageTemplate())
	rootCmd.SetHelpTemplate(usageTemplate())
}

func usageTemplate() string {
	return `{{if .Long}}{{.Long}}

{{end}}` + ui.Styles.Bold.Render("USAGE") + `
  {{.UseLine}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}

{{if .HasExample}}` + ui.Styles.Bold.Render("EXAMPLES") + `
{{.Example}}

{{end}}{{if .HasAvailableSubCommands}}` + ui.Styles.Bold.Render("COMMANDS") + `{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableLocalFlags}}` + ui.Styles.Bold.Render("OPTIONS") + `
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`
}

// formatVersion formats the version output
func formatVersion() string {
	return fmt.Sprintf("swarmpal version %s\n", config.GetVersion())
}
