package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/treefix50/recapadmin/internal/catalog"
	"github.com/treefix50/recapadmin/internal/jsonvalue"
	"github.com/treefix50/recapadmin/internal/seriesjson"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(svc *services) error {
				items, err := svc.catalog.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No series in the catalog")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.ID,
						item.Title,
						item.Category,
						years(item),
						string(item.Status),
						strconv.Itoa(item.TotalSeasons),
					})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"ID", "Title", "Category", "Years", "Status", "Seasons"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a series to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(svc *services) error {
				doc, err := svc.catalog.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				data, err := seriesjson.Export(doc)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if outputDir == "-" {
					_, err := fmt.Fprintln(out, string(data))
					return err
				}
				if err := os.MkdirAll(outputDir, 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
				target := filepath.Join(outputDir, seriesjson.ExportFilename(jsonvalue.Format(doc["title"])))
				if err := os.WriteFile(target, append(data, '\n'), 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(out, "Exported %q to %s\n", jsonvalue.Format(doc["title"]), target)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Output directory, or - for stdout")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(svc *services) error {
				if err := svc.catalog.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted series %s\n", args[0])
				return nil
			})
		},
	}
}

func years(item catalog.SeriesListItem) string {
	if item.StartYear == 0 {
		return ""
	}
	if item.EndYear == nil {
		return fmt.Sprintf("%d-", item.StartYear)
	}
	return fmt.Sprintf("%d-%d", item.StartYear, *item.EndYear)
}
