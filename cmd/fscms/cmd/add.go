package cmd

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/spf13/cobra"

	"github.com/aweris/fscms"
)

var addCmd = &cobra.Command{
	Use:   "add <type>",
	Short: "Add a post",
	Long:  "Add a post of the given type. Fields come from --data and --set; id, creator and timestamps are assigned.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().String("data", "", "post fields as a JSON object")
	addCmd.Flags().StringArray("set", nil, "field assignment key=value (repeatable)")
	addCmd.Flags().String("status", fscms.StatusDraft, "post status")
	addCmd.Flags().String("publish-at", "", "publication time ("+fscms.TimeLayout+"), for published posts")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) (err error) {
	data, _ := cmd.Flags().GetString("data")
	sets, _ := cmd.Flags().GetStringArray("set")
	status, _ := cmd.Flags().GetString("status")
	publishAt, _ := cmd.Flags().GetString("publish-at")

	fields, err := parseDocument(data)
	if err != nil {
		return err
	}
	assigned, err := parseAssignments(sets)
	if err != nil {
		return err
	}
	maps.Copy(fields, assigned)

	opts := []fscms.PostOption{fscms.WithStatus(status)}
	if publishAt != "" {
		at, err := time.ParseInLocation(fscms.TimeLayout, publishAt, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --publish-at: %w", err)
		}
		opts = append(opts, fscms.WithPublishAt(at))
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

	post, err := repo.AddPost(context.Background(), args[0], fields, opts...)
	if err != nil {
		return fmt.Errorf("add failed: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), post)
}
