package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/docrag-go/internal/rag"
)

// NewAskCmd constructs the `docrag ask` command, which answers a question
// from the guest account's documents.
func NewAskCmd() *cobra.Command {
	var docID int64
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask [--doc N] <question>",
		Short: "Ask a question about your documents",
		Long: `Answer a question from the most relevant chunks of your documents.

Without --doc every document is searched and the answer is attributed to the
document of the best matching chunk. With --doc only that document is used.

Examples:
  docrag ask "what is the notice period?"
  docrag ask --doc 3 --sources "summarise the payment terms"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, log := cliContext(cmd.Context())
			a, err := newApp(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer a.Close()

			u, err := a.guest(ctx)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			docs, err := a.db.ScopeDocuments(ctx, u.ID)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			answer, err := a.orch.Query(ctx, rag.Query{Text: strings.Join(args, " "), DocumentID: docID}, docs)
			switch {
			case errors.Is(err, rag.ErrNotFound):
				return errors.New("ask: no documents found; run `docrag ingest` first")
			case errors.Is(err, rag.ErrNoChunks):
				return errors.New("ask: no document chunks available; re-ingest your documents")
			case err != nil:
				return fmt.Errorf("ask: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, answer.Text)
			if answer.Filename != "" {
				fmt.Fprintf(out, "\nSource: %s (document %d)\n", answer.Filename, answer.DocumentID)
			}
			if showSources {
				for i, c := range answer.RelevantChunks {
					fmt.Fprintf(out, "\n[%d] %s\n", i+1, c)
				}
			}
			return nil
		},
	}

	cmd.Flags().Int64VarP(&docID, "doc", "d", 0, "Restrict the search to one document id")
	cmd.Flags().BoolVarP(&showSources, "sources", "s", false, "Print the chunks the answer was built from")
	return cmd
}
