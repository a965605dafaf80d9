package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"resumeup/internal/registry"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var fullText bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one processed resume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(svc *appServices) error {
				resume, err := svc.registry.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if resume == nil {
					return fmt.Errorf("no history entry with id %s", args[0])
				}

				if jsonOutput {
					return writeJSON(cmd, showView{
						ID:           resume.ID,
						Filename:     resume.OriginalFilename,
						Status:       string(resume.Status),
						Processed:    formatTimestamp(resume.DateProcessed),
						DownloadURL:  resume.DownloadURL,
						Error:        resume.ErrorMessage,
						OriginalText: resume.OriginalText,
						ImprovedText: resume.ImprovedText,
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:        %s\n", resume.ID)
				fmt.Fprintf(out, "File:      %s\n", resume.OriginalFilename)
				fmt.Fprintf(out, "Status:    %s\n", statusLabel(resume.Status))
				fmt.Fprintf(out, "Processed: %s\n", formatTimestamp(resume.DateProcessed))
				fmt.Fprintf(out, "Download:  %s\n", orDash(resume.DownloadURL))
				if resume.Status == registry.StatusError {
					fmt.Fprintf(out, "Error:     %s\n", orDash(resume.ErrorMessage))
				}

				printText(cmd, "Original", resume.OriginalText, fullText)
				printText(cmd, "Improved", resume.ImprovedText, fullText)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable output")
	cmd.Flags().BoolVar(&fullText, "full", false, "Print the full text instead of a preview")
	return cmd
}

type showView struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	Status       string `json:"status"`
	Processed    string `json:"processed"`
	DownloadURL  string `json:"download_url,omitempty"`
	Error        string `json:"error,omitempty"`
	OriginalText string `json:"original_text,omitempty"`
	ImprovedText string `json:"improved_text,omitempty"`
}

func printText(cmd *cobra.Command, label, text string, full bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s text:\n", label)
	if full {
		fmt.Fprintln(out, text)
		return
	}
	fmt.Fprintln(out, truncate(text, 400))
}
