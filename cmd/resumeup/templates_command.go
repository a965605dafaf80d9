package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"resumeup/internal/gateway"
	"resumeup/internal/textutil"
)

var templateNameCaser = cases.Title(language.English)

func newTemplatesCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List improvement templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(svc *appServices) error {
				templates, err := svc.gateway.Templates(cmd.Context())
				if err != nil {
					return err
				}

				if jsonOutput {
					return writeJSON(cmd, templates)
				}

				out := cmd.OutOrStdout()
				if len(templates) == 0 {
					fmt.Fprintln(out, "The backend offers no templates.")
					return nil
				}

				rows := make([][]string, 0, len(templates))
				for _, tpl := range templates {
					rows = append(rows, []string{
						tpl.ID,
						displayTemplateName(tpl),
						truncate(tpl.Description, 60),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Name", "Description"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable output")
	cmd.AddCommand(newTemplatePreviewCommand(ctx))
	return cmd
}

// displayTemplateName falls back to a title-cased identifier when the backend
// sends no display name.
func displayTemplateName(tpl gateway.Template) string {
	name := strings.TrimSpace(tpl.Name)
	if name != "" {
		return name
	}
	return templateNameCaser.String(strings.ReplaceAll(tpl.ID, "_", " "))
}

func newTemplatePreviewCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "preview <template-id>",
		Short: "Download a template preview image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(svc *appServices) error {
				target := strings.TrimSpace(outputPath)
				if target == "" {
					target = filepath.Join(".", textutil.SanitizeToken(args[0])+"_preview.png")
				}

				file, err := os.Create(target)
				if err != nil {
					return fmt.Errorf("create preview file: %w", err)
				}
				defer file.Close()

				written, err := svc.gateway.TemplatePreview(cmd.Context(), args[0], file)
				if err != nil {
					_ = os.Remove(target)
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", target, written)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination path for the preview image")
	return cmd
}
