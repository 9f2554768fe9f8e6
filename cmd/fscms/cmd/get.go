package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a post",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid post id %q", arg)
	}
	return id, nil
}

func runGet(cmd *cobra.Command, args []string) (err error) {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	repo, err := openRepo()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := repo.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	post, err := repo.Lookup(context.Background(), id)
	if err != nil {
		return fmt.Errorf("post %d: %w", id, err)
	}
	return printJSON(cmd.OutOrStdout(), post)
}
