package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"resumeup/internal/delivery"
	"resumeup/internal/gateway"
	"resumeup/internal/registry"
)

func newDeliverCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deliver <id>",
		Short: "Fetch a finished resume to the configured target",
		Long: "Downloads the improved resume and delivers it according to the " +
			"configured target: opened in the browser, saved to the download " +
			"directory, or handed to the share surface.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelivery(ctx, cmd, args[0], false)
		},
	}
	return cmd
}

func newShareCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share <id>",
		Short: "Fetch a finished resume and hand it to the share surface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelivery(ctx, cmd, args[0], true)
		},
	}
	return cmd
}

func runDelivery(ctx *commandContext, cmd *cobra.Command, id string, share bool) error {
	return ctx.withServices(func(svc *appServices) error {
		runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		resume, err := svc.registry.GetByID(runCtx, id)
		if err != nil {
			return err
		}
		if resume == nil {
			return fmt.Errorf("no history entry with id %s", id)
		}
		if resume.Status != registry.StatusCompleted {
			return fmt.Errorf("resume %s is %s; only completed resumes can be delivered", id, resume.Status)
		}

		deliverer, err := svc.newDeliverer()
		if err != nil {
			return err
		}

		progress := newByteProgress(cmd)
		var result *delivery.Result
		if share {
			result, err = deliverer.Share(runCtx, resume, progress)
		} else {
			result, err = deliverer.Deliver(runCtx, resume, progress)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if result.Shared {
			fmt.Fprintf(out, "Shared %s\n", resume.OriginalFilename)
		} else {
			fmt.Fprintf(out, "Delivered to %s\n", result.Location)
		}
		_ = svc.notifier.NotifyDeliveryCompleted(context.WithoutCancel(runCtx), resume.OriginalFilename, result.Location)
		return nil
	})
}

// newByteProgress returns a download progress callback bound to a terminal
// progress bar, or nil when stdout is not a terminal.
func newByteProgress(cmd *cobra.Command) gateway.ProgressFunc {
	stdout, ok := cmd.OutOrStdout().(*os.File)
	if !ok || !isatty.IsTerminal(stdout.Fd()) {
		return nil
	}

	var bar *progressbar.ProgressBar
	return func(written, total int64) {
		if bar == nil {
			if total <= 0 {
				total = -1
			}
			bar = progressbar.NewOptions64(total,
				progressbar.OptionSetWriter(stdout),
				progressbar.OptionSetDescription("Downloading"),
				progressbar.OptionShowBytes(true),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set64(written)
	}
}
