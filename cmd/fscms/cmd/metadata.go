package cmd

import (
	"github.com/spf13/cobra"
)

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Print the loaded indexes",
	Args:  cobra.NoArgs,
	RunE:  runMetadata,
}

func init() {
	rootCmd.AddCommand(metadataCmd)
}

func runMetadata(cmd *cobra.Command, args []string) (err error) {
	repo, err := openRepo()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := repo.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	snap := repo.Metadata()
	out := make(map[string]any, len(snap.Indexes)+1)
	for name, raw := range snap.Indexes {
		out[name] = raw
	}
	out["posts"] = snap.Posts
	return printJSON(cmd.OutOrStdout(), out)
}
