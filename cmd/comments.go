package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/addistalk/addistalk/models"
	"github.com/addistalk/addistalk/utils"
)

func newCommentsCommand() *cobra.Command {
	commentsCmd := &cobra.Command{
		Use:   "comments [pending|approve]",
		Short: "Moderate comments",
	}
	commentsCmd.AddCommand(&cobra.Command{
		Use:   "pending",
		Short: "List comments waiting for approval, oldest first",
		Args:  cobra.NoArgs,
		RunE:  commentsPendingCommand,
	})
	commentsCmd.AddCommand(&cobra.Command{
		Use:   "approve ID...",
		Short: "Approve comments",
		Args:  cobra.MinimumNArgs(1),
		RunE:  commentsApproveCommand,
	})
	return commentsCmd
}

func commentsPendingCommand(cmd *cobra.Command, _ []string) error {
	_, db, err := setup()
	if err != nil {
		return err
	}
	comments, total, err := models.PendingComments(db, 1, 100)
	if err != nil {
		return fmt.Errorf("list pending comments: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPOST\tAUTHOR\tCREATED\tBODY")
	for _, c := range comments {
		post := ""
		if c.Post != nil {
			post = c.Post.Slug
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			c.ID, post, c.User.Username, c.CreatedAt.Format("2006-01-02 15:04"), preview(c.Body, 60))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d pending\n", total)
	return nil
}

func commentsApproveCommand(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	_, db, err := setup()
	if err != nil {
		return err
	}
	n, err := models.ApproveComments(db, ids)
	if err != nil {
		return fmt.Errorf("approve comments: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), utils.CountMessage(n, "comment", "approved"))
	return nil
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
