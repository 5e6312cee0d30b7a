package commands

import (
	"fmt"
	"log/slog"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewDocsCmd constructs the `docrag docs` command group.
func NewDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "List or delete stored documents",
	}
	cmd.AddCommand(newDocsListCmd(), newDocsDeleteCmd())
	return cmd
}

func newDocsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, log := cliContext(cmd.Context())
			a, err := newApp(ctx, log)
			if err != nil {
				return fmt.Errorf("docs list: %w", err)
			}
			defer a.Close()

			u, err := a.guest(ctx)
			if err != nil {
				return fmt.Errorf("docs list: %w", err)
			}
			docs, err := a.db.ListDocuments(ctx, u.ID)
			if err != nil {
				return fmt.Errorf("docs list: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFILENAME\tUPLOADED\tCHUNKS\tEMBEDDED\tSUMMARY")
			for _, d := range docs {
				summarised := "no"
				if d.Summary != "" {
					summarised = "yes"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n",
					d.ID, d.Filename, d.UploadedAt.Format("2006-01-02 15:04"),
					d.ChunkCount, d.EmbeddedCount, summarised)
			}
			return tw.Flush()
		},
	}
}

func newDocsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>...",
		Short: "Delete documents and their chunks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("docs delete: invalid document id %q", arg)
				}
				ids = append(ids, id)
			}

			ctx, log := cliContext(cmd.Context())
			a, err := newApp(ctx, log)
			if err != nil {
				return fmt.Errorf("docs delete: %w", err)
			}
			defer a.Close()

			u, err := a.guest(ctx)
			if err != nil {
				return fmt.Errorf("docs delete: %w", err)
			}
			for _, id := range ids {
				if err := a.db.DeleteDocument(ctx, u.ID, id); err != nil {
					return fmt.Errorf("docs delete %d: %w", id, err)
				}
				if a.mirror != nil {
					if err := a.mirror.DeleteDocument(ctx, id); err != nil {
						log.Warn("qdrant: mirror delete failed", slog.Int64("document_id", id), slog.Any("error", err))
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", id)
			}
			return nil
		},
	}
}
