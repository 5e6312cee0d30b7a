package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/docrag-go/internal/export"
	"github.com/54b3r/docrag-go/internal/store"
)

// NewExportCmd constructs the `docrag export` command.
func NewExportCmd() *cobra.Command {
	var format string
	var output string
	var ids []int64

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export documents with their summaries as JSON or text",
		Long: `Export stored documents with their summaries and content.

Without --id every document is exported. Without --output the export is
written to documents_export_<timestamp>.<format> in the current directory;
use --output - for stdout.

Examples:
  docrag export --format json
  docrag export --format txt --id 2 --id 5 --output -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.Normalize(format)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}

			ctx, log := cliContext(cmd.Context())
			a, err := newApp(ctx, log)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			defer a.Close()

			u, err := a.guest(ctx)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if len(ids) == 0 {
				listed, err := a.db.ListDocuments(ctx, u.ID)
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				for _, d := range listed {
					ids = append(ids, d.ID)
				}
			}
			if len(ids) == 0 {
				return fmt.Errorf("export: no documents found")
			}

			docs := make([]store.Document, 0, len(ids))
			for _, id := range ids {
				d, err := a.db.GetDocument(ctx, u.ID, id)
				if err != nil {
					return fmt.Errorf("export: document %d: %w", id, err)
				}
				docs = append(docs, *d)
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "-" {
				if output == "" {
					output = export.Filename(f, time.Now())
				}
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				defer file.Close()
				w = file
			}
			if err := export.Write(w, f, docs); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d documents to %s\n", len(docs), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Export format: json or txt")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, or - for stdout")
	cmd.Flags().Int64SliceVar(&ids, "id", nil, "Document id to export (repeatable)")
	return cmd
}
