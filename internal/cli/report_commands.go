package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/treefix50/recapadmin/internal/reports"
)

func newReportsCommand(ctx *commandContext) *cobra.Command {
	reportsCmd := &cobra.Command{
		Use:   "reports",
		Short: "Review change reports sent by users",
	}

	reportsCmd.AddCommand(newReportsListCommand(ctx))
	reportsCmd.AddCommand(newReportsReviewCommand(ctx))

	return reportsCmd
}

func newReportsListCommand(ctx *commandContext) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := reports.ParseFilter(status)
			if err != nil {
				return err
			}
			return ctx.withServices(cmd, func(svc *services) error {
				list, err := svc.reports.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No reports")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, report := range list {
					rows = append(rows, []string{
						report.ID,
						report.SeriesTitle,
						string(report.ChangeType),
						string(report.Status),
						report.UserEmail,
						report.CreatedAt,
						report.Description,
					})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"ID", "Series", "Type", "Status", "From", "Created", "Description"},
					rows, nil,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "pending", "Filter: all, pending, reviewed or rejected")
	return cmd
}

func newReportsReviewCommand(ctx *commandContext) *cobra.Command {
	var reviewer string

	cmd := &cobra.Command{
		Use:       "review <id> <reviewed|rejected>",
		Short:     "Mark a report as reviewed or rejected",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(reports.StatusReviewed), string(reports.StatusRejected)},
		RunE: func(cmd *cobra.Command, args []string) error {
			by := reviewer
			if by == "" {
				by = os.Getenv("USER")
			}
			if by == "" {
				by = "cli"
			}
			return ctx.withServices(cmd, func(svc *services) error {
				if err := svc.reports.Review(cmd.Context(), args[0], reports.Status(args[1]), by); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Report %s marked %s\n", args[0], args[1])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reviewer, "by", "", "Reviewer recorded on the report (defaults to $USER)")
	return cmd
}
