package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aweris/fscms"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Restore the store from an archive",
	Long:  "Restore an archive written by export into the root folder, which must be empty. Use - for stdin.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) (err error) {
	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	repo, err := fscms.Import(context.Background(), getRoot(), r, openOptions()...)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	defer func() {
		if cerr := repo.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "Done. %d posts restored into %s\n", len(repo.Metadata().Posts), repo.Root())
	return nil
}
