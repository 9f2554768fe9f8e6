package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Rebuild the posts index",
	Long:  "Rebuild metadata/posts.json from the documents under contents/.",
	Args:  cobra.NoArgs,
	RunE:  runRepair,
}

func init() {
	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, args []string) (err error) {
	repo, err := openRepo()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := repo.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := repo.RepairIndex(context.Background()); err != nil {
		return fmt.Errorf("repair failed: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Done. %d posts indexed\n", len(repo.Metadata().Posts))
	return nil
}
