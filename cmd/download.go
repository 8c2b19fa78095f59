package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var downloadOutput string

var downloadCmd = &cobra.Command{
	Use:   "download <filename>",
	Short: "Download a saved photo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDownload(cmd.Context(), args[0])
	},
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "Destination path (default: the photo's filename in the current directory)")
	rootCmd.AddCommand(downloadCmd)
}

func runDownload(ctx context.Context, filename string) error {
	dest := downloadOutput
	if dest == "" {
		dest = filepath.Base(filename)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".goober-download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	n, err := newClient().FetchPhoto(ctx, filename, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return err
	}
	fmt.Printf("⬇️  %s (%d bytes)\n", dest, n)
	return nil
}
