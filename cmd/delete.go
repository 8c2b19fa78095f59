package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/andresmejia3/goober/internal/gallery"
	"github.com/andresmejia3/goober/internal/logger"
	"github.com/spf13/cobra"
)

var (
	deleteYes     bool
	deleteRefresh bool
)

var deleteCmd = &cobra.Command{
	Use:     "delete <photo-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a saved photo",
	Args:    cobra.ExactArgs(1),
	Annotations: map[string]string{
		journalAnnotation: journalOptional,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid photo id %q", args[0])
		}
		return runDelete(cmd.Context(), id)
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")
	deleteCmd.Flags().BoolVarP(&deleteRefresh, "refresh", "r", false, "List the remaining photos afterwards")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(ctx context.Context, id int) error {
	asker, err := newConfirmer(deleteYes, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	g := gallery.New(newClient(), asker, newBoard(os.Stdout), gallery.WithPhotoBaseURL(cfg.API.URL))

	outcome, err := g.DeletePhoto(ctx, id)
	logger.Debug("Delete", "photo %d: %s", id, outcome)
	if err != nil {
		return reported(err)
	}
	if outcome != gallery.DeleteSucceeded {
		return nil
	}

	if Journal != nil {
		if err := Journal.MarkDeleted(ctx, id); err != nil {
			logger.Warn("Journal", "cannot mark photo %d deleted: %v", id, err)
		}
	}

	if deleteRefresh {
		fmt.Println()
		return showGallery(ctx, g)
	}
	return nil
}
