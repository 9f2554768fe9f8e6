package cmd

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/aweris/fscms"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List posts",
	Long:  "List posts matching every given filter. Without filters all posts are listed.",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().String("type", "", "only posts of this type")
	listCmd.Flags().String("status", "", "only posts with this status")
	listCmd.Flags().String("language", "", "only posts in this language")
	listCmd.Flags().StringArray("where", nil, "field filter key=value (repeatable)")
	listCmd.Flags().Bool("json", false, "print full documents as JSON")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) (err error) {
	wheres, _ := cmd.Flags().GetStringArray("where")
	asJSON, _ := cmd.Flags().GetBool("json")

	fields, err := parseAssignments(wheres)
	if err != nil {
		return err
	}
	filter := fscms.Filter(fields)
	for _, name := range []string{fscms.FieldType, fscms.FieldStatus, fscms.FieldLanguage} {
		if v, _ := cmd.Flags().GetString(name); v != "" {
			filter[name] = v
		}
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

	posts, err := repo.ListPosts(context.Background(), filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ids := slices.Sorted(maps.Keys(posts))
	if asJSON {
		docs := make([]fscms.Post, 0, len(ids))
		for _, id := range ids {
			docs = append(docs, posts[id])
		}
		return printJSON(out, docs)
	}

	if len(ids) == 0 {
		fmt.Fprintln(out, "(no posts)")
		return nil
	}
	for _, id := range ids {
		p := posts[id]
		fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", id, p.Type, p.Status, p.Published)
	}
	return nil
}
