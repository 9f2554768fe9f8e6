package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aweris/fscms"
)

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a post",
	Long: `Update a post. With --data the document is replaced wholesale; otherwise the
stored post is loaded and --set/--unset are applied to it before it is written back.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().String("data", "", "replacement document as a JSON object")
	updateCmd.Flags().StringArray("set", nil, "field assignment key=value (repeatable)")
	updateCmd.Flags().StringArray("unset", nil, "field to remove (repeatable)")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) (err error) {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	data, _ := cmd.Flags().GetString("data")
	sets, _ := cmd.Flags().GetStringArray("set")
	unsets, _ := cmd.Flags().GetStringArray("unset")

	assigned, err := parseAssignments(sets)
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

	ctx := context.Background()
	var post fscms.Post
	if data != "" {
		fields, err := parseDocument(data)
		if err != nil {
			return err
		}
		if post, err = fscms.PostFromFields(fields); err != nil {
			return err
		}
	} else {
		if post, err = repo.Lookup(ctx, id); err != nil {
			return fmt.Errorf("post %d: %w", id, err)
		}
		fields := post.Map()
		for _, name := range unsets {
			delete(fields, name)
		}
		if post, err = fscms.PostFromFields(fields); err != nil {
			return err
		}
	}

	for name, v := range assigned {
		if err := post.Set(name, v); err != nil {
			return err
		}
	}
	post.ID = id

	if err := repo.UpdatePost(ctx, post); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), post)
}
