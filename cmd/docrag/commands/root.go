// Package commands defines the Cobra CLI commands of the docrag binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/docrag-go/internal/audit"
	"github.com/54b3r/docrag-go/internal/config"
	"github.com/54b3r/docrag-go/internal/logging"
)

// configPath holds the --config flag value.
var configPath string

// NewRootCmd constructs the root command all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docrag",
		Short: "docrag: upload documents, ask questions about them, chat",
		Long: `docrag stores uploaded documents (txt, md, html, csv, json, pdf, docx, pptx),
splits and embeds them, and answers questions from the most relevant chunks.
It also summarises documents, exports them, checks grammar and offers a
general-purpose streamed chat.

The completion backend is selected with MODEL_PROVIDER, the embedding backend
with EMBEDDING_PROVIDER. Settings may also come from a .env file or a YAML
config file (~/.docrag/config.yaml); real environment variables always win.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			log := logging.New()
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			audit.LogCommandStart(log, cmd.CommandPath(), path)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.docrag/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewIngestCmd(),
		NewAskCmd(),
		NewSummarizeCmd(),
		NewDocsCmd(),
		NewExportCmd(),
		NewVersionCmd(),
	)
	return root
}
