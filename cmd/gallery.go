package cmd

import (
	"context"
	"os"

	"github.com/andresmejia3/goober/internal/confirm"
	"github.com/andresmejia3/goober/internal/gallery"
	"github.com/spf13/cobra"
)

var galleryCmd = &cobra.Command{
	Use:     "gallery",
	Aliases: []string{"photos", "ls"},
	Short:   "List saved photos",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGallery(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(galleryCmd)
}

func runGallery(ctx context.Context) error {
	// Listing never deletes, so nothing needs confirming.
	g := gallery.New(newClient(), confirm.Always(false), newBoard(os.Stdout),
		gallery.WithPhotoBaseURL(cfg.API.URL))
	return showGallery(ctx, g)
}

// showGallery loads and prints the gallery. A failed load still renders the error panel.
func showGallery(ctx context.Context, g *gallery.Controller) error {
	v, err := g.LoadPhotos(ctx)
	if rerr := gallery.Render(os.Stdout, v); rerr != nil {
		return rerr
	}
	return reported(err)
}
