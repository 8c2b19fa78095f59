package cmd

import (
	"context"
	"os"

	"github.com/andresmejia3/goober/internal/api"
	"github.com/spf13/cobra"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Ask the photo service to create its database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInitDB(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}

func runInitDB(ctx context.Context) error {
	board := newBoard(os.Stdout)
	res, err := newClient().InitDatabase(ctx)
	if err != nil {
		return err
	}
	if res.Error != "" {
		board.Show("Error: "+res.Error, true)
		return reported(&api.ServiceError{Op: "init_db", Message: res.Error})
	}
	board.Show(res.Message, false)
	return nil
}
