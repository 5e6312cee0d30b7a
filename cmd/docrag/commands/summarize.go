package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewSummarizeCmd constructs the `docrag summarize` command.
func NewSummarizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <document-id>",
		Short: "Summarise a stored document and save the summary",
		Long: `Summarise a stored document with the completion model and save the result.
Without a configured model, or when the model fails, a short extractive
summary built from the leading sentences is saved instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("summarize: invalid document id %q", args[0])
			}

			ctx, log := cliContext(cmd.Context())
			a, err := newApp(ctx, log)
			if err != nil {
				return fmt.Errorf("summarize: %w", err)
			}
			defer a.Close()

			u, err := a.guest(ctx)
			if err != nil {
				return fmt.Errorf("summarize: %w", err)
			}
			doc, err := a.db.GetDocument(ctx, u.ID, id)
			if err != nil {
				return fmt.Errorf("summarize: %w", err)
			}
			if strings.TrimSpace(doc.Content) == "" {
				return errors.New("summarize: document has no text content")
			}

			sum := a.summarizer.Summarize(ctx, doc.Content)
			if err := a.db.UpdateSummary(ctx, u.ID, id, sum.Text); err != nil {
				return fmt.Errorf("summarize: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s summary)\n\n%s\n", doc.Filename, sum.Method, sum.Text)
			return nil
		},
	}
}
