package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newCreditsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Show the credit balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(svc *appServices) error {
				balance := svc.ledger.Load(cmd.Context())
				if jsonOutput {
					return writeJSON(cmd, creditsView{Balance: balance})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Credits: %d\n", balance)
				if balance == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Purchase more credits to process resumes.")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable output")
	cmd.AddCommand(newCreditsAddCommand(ctx))
	return cmd
}

type creditsView struct {
	Balance int `json:"balance"`
}

func newCreditsAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <amount>",
		Short: "Add purchased credits to the balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.Atoi(args[0])
			if err != nil || amount <= 0 {
				return fmt.Errorf("amount must be a positive integer, got %q", args[0])
			}
			return ctx.withServices(func(svc *appServices) error {
				svc.ledger.Load(cmd.Context())
				if err := svc.ledger.Add(cmd.Context(), amount); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Credits: %d\n", svc.ledger.Balance())
				return nil
			})
		},
	}
}
