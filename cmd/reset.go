package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the local capture journal",
	Long:  "Drops every journal table. Photos stored by the service are not touched.",
	Annotations: map[string]string{
		journalAnnotation: journalRequired,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		asker, err := newConfirmer(resetYes, os.Stdin, os.Stdout)
		if err != nil {
			return err
		}
		if !asker.Confirm(cmd.Context(), "⚠️  Are you sure you want to DROP all journal tables?") {
			fmt.Println("Nothing changed.")
			return nil
		}

		fmt.Println("🗑️  Clearing journal...")
		if err := Journal.Reset(cmd.Context()); err != nil {
			return fmt.Errorf("failed to reset journal: %w", err)
		}
		fmt.Println("✨ Journal reset complete.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(resetCmd)
}
