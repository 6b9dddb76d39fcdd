package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/addistalk/addistalk/models"
	"github.com/addistalk/addistalk/utils"
)

const (
	titleFlag    = "title"
	slugFlag     = "slug"
	bodyFlag     = "body"
	bodyFileFlag = "body-file"
	excerptFlag  = "excerpt"
	statusFlag   = "status"
	authorFlag   = "author"
)

var postCreateFlags = map[string]cobraflags.Flag{
	titleFlag: &cobraflags.StringFlag{
		Name:  titleFlag,
		Value: "",
		Usage: "Post title (required)",
	},
	slugFlag: &cobraflags.StringFlag{
		Name:  slugFlag,
		Value: "",
		Usage: "URL slug; derived from the title when empty",
	},
	bodyFlag: &cobraflags.StringFlag{
		Name:  bodyFlag,
		Value: "",
		Usage: "Post body",
	},
	bodyFileFlag: &cobraflags.StringFlag{
		Name:  bodyFileFlag,
		Value: "",
		Usage: "Read the post body from this file instead of --body",
	},
	excerptFlag: &cobraflags.StringFlag{
		Name:  excerptFlag,
		Value: "",
		Usage: "Short summary shown on the home page",
	},
	statusFlag: &cobraflags.StringFlag{
		Name:  statusFlag,
		Value: "draft",
		Usage: "draft or published",
	},
	authorFlag: &cobraflags.StringFlag{
		Name:  authorFlag,
		Value: "",
		Usage: "Username of the author (optional)",
	},
}

func newPostsCommand() *cobra.Command {
	postsCmd := &cobra.Command{
		Use:   "posts [create|publish|unpublish]",
		Short: "Manage blog posts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a post",
		Args:  cobra.NoArgs,
		RunE:  postsCreateCommand,
	}
	cobraflags.RegisterMap(createCmd, postCreateFlags)

	postsCmd.AddCommand(createCmd)
	postsCmd.AddCommand(&cobra.Command{
		Use:   "publish ID",
		Short: "Publish a post",
		Args:  cobra.ExactArgs(1),
		RunE:  postsStatusCommand(models.StatusPublished),
	})
	postsCmd.AddCommand(&cobra.Command{
		Use:   "unpublish ID",
		Short: "Turn a post back into a draft",
		Args:  cobra.ExactArgs(1),
		RunE:  postsStatusCommand(models.StatusDraft),
	})
	return postsCmd
}

func postsCreateCommand(cmd *cobra.Command, _ []string) error {
	title := strings.TrimSpace(postCreateFlags[titleFlag].GetString())
	if title == "" {
		return fmt.Errorf("--%s is required", titleFlag)
	}
	body := postCreateFlags[bodyFlag].GetString()
	if path := postCreateFlags[bodyFileFlag].GetString(); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		body = string(b)
	}
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("--%s or --%s is required", bodyFlag, bodyFileFlag)
	}
	status, err := parseStatus(postCreateFlags[statusFlag].GetString())
	if err != nil {
		return err
	}

	_, db, err := setup()
	if err != nil {
		return err
	}
	post := models.Post{
		Title:   title,
		Slug:    postCreateFlags[slugFlag].GetString(),
		Body:    body,
		Excerpt: postCreateFlags[excerptFlag].GetString(),
		Status:  status,
	}
	if author := postCreateFlags[authorFlag].GetString(); author != "" {
		var u models.User
		if err := db.Where("username = ?", author).First(&u).Error; err != nil {
			return fmt.Errorf("author %q: %w", author, err)
		}
		post.AuthorID = &u.ID
	}
	if err := models.CreatePost(db, &post); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	utils.InvalidateByPrefix("cache:posts:")
	fmt.Fprintf(cmd.OutOrStdout(), "created post %d (%s)\n", post.ID, post.Slug)
	return nil
}

func postsStatusCommand(status int) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}
		_, db, err := setup()
		if err != nil {
			return err
		}
		post, err := models.SetPostStatus(db, uint(id), status)
		if errors.Is(err, models.ErrPostNotFound) {
			return fmt.Errorf("post %d not found", id)
		}
		if err != nil {
			return fmt.Errorf("update post: %w", err)
		}
		utils.InvalidateByPrefix("cache:posts:")
		state := "draft"
		if post.IsPublished() {
			state = "published"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "post %d (%s) is now %s\n", post.ID, post.Slug, state)
		return nil
	}
}

func parseStatus(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "draft", "0", "":
		return models.StatusDraft, nil
	case "published", "publish", "1":
		return models.StatusPublished, nil
	default:
		return 0, fmt.Errorf("unknown status %q (want draft or published)", s)
	}
}
