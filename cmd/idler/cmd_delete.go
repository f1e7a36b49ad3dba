package main

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/yairfalse/idler/internal/client"
	"github.com/yairfalse/idler/internal/dashboard"
	"github.com/yairfalse/idler/pkg/resource"
)

var (
	deleteType string
	deleteYes  bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete one idle resource through the aggregator",
	Example: `  idler delete vol-0abc123                  # Asks for confirmation
  idler delete orders-db --type managed_db  # Explicit type
  idler delete i-0abc123 --yes              # No prompt`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().StringVar(&deleteType, "type", "", "Resource type (inferred from the inventory or the id when empty)")
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	id := args[0]
	api := client.New(cfg.Dashboard.APIURL, cfg.Dashboard.Timeout)

	if deleteType != "" {
		typ, err := resource.ParseType(deleteType)
		if err != nil {
			return err
		}
		if !deleteYes && !confirmDelete(id) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
		msg, err := api.Delete(cmd.Context(), id, typ)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	}

	// Load first so the row's type travels with the request.
	d := dashboard.New(api)
	if err := d.Load(cmd.Context()); err != nil {
		return err
	}

	confirm := dashboard.ConfirmFunc(confirmDelete)
	if deleteYes {
		confirm = dashboard.SkipConfirm
	}
	if err := d.DeleteRow(cmd.Context(), id, confirm); err != nil {
		if errors.Is(err, dashboard.ErrNotConfirmed) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Resource %s deleted\n", id)
	return nil
}

func confirmDelete(id string) bool {
	ok := false
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("Delete %s? This cannot be undone.", id),
	}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false
	}
	return ok
}
