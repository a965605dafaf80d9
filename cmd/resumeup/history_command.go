package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"resumeup/internal/registry"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List processed resumes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(svc *appServices) error {
				var statuses []registry.Status
				if statusFilter != "" {
					status, ok := registry.ParseStatus(statusFilter)
					if !ok {
						return fmt.Errorf("unknown status %q (one of: processing, completed, error)", statusFilter)
					}
					statuses = append(statuses, status)
				}

				resumes, err := svc.registry.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}

				if jsonOutput {
					return writeJSON(cmd, historyViews(resumes))
				}

				out := cmd.OutOrStdout()
				if len(resumes) == 0 {
					fmt.Fprintln(out, "No resumes processed yet.")
					return nil
				}

				rows := make([][]string, 0, len(resumes))
				for _, resume := range resumes {
					detail := ""
					if resume.Status == registry.StatusError {
						detail = truncate(resume.ErrorMessage, 40)
					}
					rows = append(rows, []string{
						resume.ID,
						truncate(resume.OriginalFilename, 32),
						statusLabel(resume.Status),
						formatTimestamp(resume.DateProcessed),
						detail,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "File", "Status", "Processed", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable output")
	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show entries with this status")

	cmd.AddCommand(newHistoryRemoveCommand(ctx))
	cmd.AddCommand(newHistoryClearCommand(ctx))
	return cmd
}

type historyView struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Processed string `json:"processed"`
	Error     string `json:"error,omitempty"`
}

func historyViews(resumes []*registry.Resume) []historyView {
	views := make([]historyView, 0, len(resumes))
	for _, resume := range resumes {
		views = append(views, historyView{
			ID:        resume.ID,
			Filename:  resume.OriginalFilename,
			Status:    string(resume.Status),
			Processed: formatTimestamp(resume.DateProcessed),
			Error:     resume.ErrorMessage,
		})
	}
	return views
}

func newHistoryRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove one entry from the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(svc *appServices) error {
				removed, err := svc.registry.Remove(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("no history entry with id %s", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	var erroredOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the processing history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(svc *appServices) error {
				var cleared int64
				var err error
				if erroredOnly {
					cleared, err = svc.registry.ClearErrored(cmd.Context())
				} else {
					cleared, err = svc.registry.Clear(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", cleared)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&erroredOnly, "errored", false, "Only remove failed entries")
	return cmd
}
