package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/fscms"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export the store to an archive",
	Long:  "Write the metadata and contents trees to a zstd-compressed tar archive. Use - for stdout.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().Int("level", fscms.DefaultCompressionLevel, "compression level 1-4, 0 disables compression")
	viper.BindPFlag("compression_level", exportCmd.Flags().Lookup("level"))
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) (err error) {
	opts := append(openOptions(), fscms.WithCompressionLevel(viper.GetInt("compression_level")))
	repo, err := fscms.Open(getRoot(), opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := repo.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var w io.Writer = cmd.OutOrStdout()
	if args[0] != "-" {
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = f
	}

	if err := repo.Export(context.Background(), w); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Done. Exported %s\n", repo.Root())
	return nil
}
