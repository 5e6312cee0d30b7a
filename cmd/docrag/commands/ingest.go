package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// NewIngestCmd constructs the `docrag ingest` command, which stores local
// files the same way POST /api/upload does.
func NewIngestCmd() *cobra.Command {
	var keepGoing bool

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Extract, chunk and embed local documents",
		Long: `Store one or more local files as documents of the guest account.

Each file is converted to text by its extension, split into overlapping
chunks and embedded with the configured embedding provider. Chunks are stored
even when embedding fails, so documents can be re-embedded later.

Examples:
  docrag ingest handbook.pdf notes.md
  docrag ingest --keep-going ./reports/*.docx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, log := cliContext(cmd.Context())
			a, err := newApp(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer a.Close()

			u, err := a.guest(ctx)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				err := ingestFile(ctx, a, u.ID, path, out)
				if err == nil {
					continue
				}
				failed++
				log.Error("ingest failed", slog.String("file", path), slog.Any("error", err))
				if !keepGoing {
					return fmt.Errorf("ingest: %s: %w", path, err)
				}
			}
			if failed > 0 {
				return fmt.Errorf("ingest: %d of %d files failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&keepGoing, "keep-going", "k", false, "Continue with the remaining files after a failure")
	return cmd
}

// ingestFile stores one file and prints its id, name and chunk counts.
func ingestFile(ctx context.Context, a *app, userID int64, path string, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	res, err := a.pipeline.Ingest(ctx, userID, filepath.Base(path), data)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d\t%s\t%d chunks (%d embedded)\n",
		res.Document.ID, res.Document.Filename, res.Chunks, res.Embedded)
	return nil
}
