package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"resumeup/internal/processor"
	"resumeup/internal/services"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var templateID string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "process <resume-file>",
		Short: "Upload a resume for improvement",
		Long: "Uploads the resume to the processing backend and waits for the " +
			"improved version. Consumes one credit on success; failed or " +
			"canceled runs are free.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(svc *appServices) error {
				runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				proc := processor.New(svc.cfg, svc.ledger, svc.registry, svc.gateway, svc.notifier, svc.logger)

				onProgress := newProgressDisplay(cmd)
				final, err := proc.Process(runCtx, args[0], templateID, onProgress)
				if err != nil {
					return describeProcessError(err)
				}

				if jsonOutput {
					return writeJSON(cmd, processView{
						ID:          final.ID,
						Filename:    final.OriginalFilename,
						Status:      string(final.Status),
						DownloadURL: final.DownloadURL,
						Credits:     svc.ledger.Balance(),
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Resume improved: %s\n", final.OriginalFilename)
				fmt.Fprintf(out, "ID: %s\n", final.ID)
				fmt.Fprintf(out, "Credits remaining: %d\n", svc.ledger.Balance())
				fmt.Fprintf(out, "Run `resumeup deliver %s` to fetch the document.\n", final.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&templateID, "template", "t", "", "Improvement template identifier (see `resumeup templates`)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable output")
	return cmd
}

type processView struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Status      string `json:"status"`
	DownloadURL string `json:"download_url,omitempty"`
	Credits     int    `json:"credits_remaining"`
}

// newProgressDisplay returns a snapshot consumer: a progress bar when stdout
// is a terminal, nothing otherwise.
func newProgressDisplay(cmd *cobra.Command) processor.ProgressFunc {
	stdout, ok := cmd.OutOrStdout().(*os.File)
	if !ok || !isatty.IsTerminal(stdout.Fd()) {
		return nil
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(stdout),
		progressbar.OptionSetDescription("Processing"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return func(s processor.Snapshot) {
		bar.Describe(s.Message)
		_ = bar.Set(s.Percent)
	}
}

func describeProcessError(err error) error {
	switch {
	case errors.Is(err, services.ErrInsufficientCredits):
		return fmt.Errorf("no credits remaining; run `resumeup credits` to check your balance")
	case errors.Is(err, services.ErrProcessingActive):
		return fmt.Errorf("another resume is already being processed; wait for it to finish")
	case errors.Is(err, services.ErrTimeout):
		return fmt.Errorf("the backend did not respond in time; the run was recorded as failed and no credit was used")
	default:
		return err
	}
}
