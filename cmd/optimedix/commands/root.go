// ABOUTME: Root command and global flags for the OptiMedix CLI
// ABOUTME: Loads .env files before any subcommand runs
package commands

import (
	"errors"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath   string
	verbose      bool
	quiet        bool
	outputFormat string
)

const banner = `
 ██████╗ ██████╗ ████████╗██╗███╗   ███╗███████╗██████╗ ██╗██╗  ██╗
██╔═══██╗██╔══██╗╚══██╔══╝██║████╗ ████║██╔════╝██╔══██╗██║╚██╗██╔╝
██║   ██║██████╔╝   ██║   ██║██╔████╔██║█████╗  ██║  ██║██║ ╚███╔╝
██║   ██║██╔═══╝    ██║   ██║██║╚██╔╝██║██╔══╝  ██║  ██║██║ ██╔██╗
╚██████╔╝██║        ██║   ██║██║ ╚═╝ ██║███████╗██████╔╝██║██╔╝ ██╗
 ╚═════╝ ╚═╝        ╚═╝   ╚═╝╚═╝     ╚═╝╚══════╝╚═════╝ ╚═╝╚═╝  ╚═╝
`

// NewRootCmd creates the root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimedix",
		Short: "Medical question answering over your own documents",
		Long: banner + `
OptiMedix answers medical questions from a corpus of plain-text documents.
Answers are grounded in retrieved passages and cite their sources; vague
symptom descriptions get clarifying questions first.

It is informational only and does not replace a medical professional.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose && quiet {
				return errors.New("--verbose and --quiet are mutually exclusive")
			}
			// Load .env for API keys
			_ = godotenv.Load()
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (default $OPTIMEDIX_CONFIG)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors and suppress hints")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto or json")

	cmd.AddCommand(
		NewChatCmd(),
		NewAskCmd(),
		NewSearchCmd(),
		NewIngestCmd(),
		NewReindexCmd(),
		NewHistoryCmd(),
		NewServeCmd(),
		NewMCPCmd(),
		NewCheckCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
