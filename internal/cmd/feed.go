package cmd

import (
	"context"
	"html"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brainboard/brainboard/internal/core"
	"github.com/brainboard/brainboard/internal/session"
)

var (
	profileFirstName string
	profileLastName  string
	profilePhone     string

	postsType  string
	postsSort  string
	postsLimit int

	postCreateType  string
	postCreateMedia []string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or edit the signed-in user's profile",
}

var profileGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *session.Client) error {
			profile, err := client.GetProfile(ctx)
			if err != nil {
				return err
			}
			return writeOutput(cmd, profile)
		})
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Change name or phone number",
	Long: `Change name or phone number. Fields whose flag is not given keep
their current value.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *session.Client) error {
			current, err := client.GetProfile(ctx)
			if err != nil {
				return err
			}
			// Stored values come back escaped; UpdateProfile escapes again.
			update := core.ProfileUpdate{
				FirstName: html.UnescapeString(current.FirstName),
				LastName:  html.UnescapeString(current.LastName),
				Phone:     html.UnescapeString(current.Phone),
			}
			if cmd.Flags().Changed("first-name") {
				update.FirstName = profileFirstName
			}
			if cmd.Flags().Changed("last-name") {
				update.LastName = profileLastName
			}
			if cmd.Flags().Changed("phone") {
				update.Phone = profilePhone
			}

			profile, err := client.UpdateProfile(ctx, update)
			if err != nil {
				return err
			}
			return writeOutput(cmd, profile)
		})
	},
}

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "Read and write the feed",
}

var postsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List feed posts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *session.Client) error {
			posts, err := client.GetPosts(ctx, core.PostFilter{
				Type:  strings.ToLower(strings.TrimSpace(postsType)),
				Sort:  strings.ToLower(strings.TrimSpace(postsSort)),
				Limit: postsLimit,
			})
			if err != nil {
				return err
			}
			return writeOutput(cmd, posts)
		})
	},
}

var postsCreateCmd = &cobra.Command{
	Use:   "create <content>",
	Short: "Publish a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *session.Client) error {
			post, err := client.CreatePost(ctx, core.NewPost{
				Content: args[0],
				Type:    strings.ToLower(strings.TrimSpace(postCreateType)),
				Media:   postCreateMedia,
			})
			if err != nil {
				return err
			}
			return writeOutput(cmd, post)
		})
	},
}

var postsLikeCmd = &cobra.Command{
	Use:   "like <post-id>",
	Short: "Toggle your like on a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *session.Client) error {
			result, err := client.LikePost(ctx, args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd, result)
		})
	},
}

var postsCommentsCmd = &cobra.Command{
	Use:   "comments <post-id>",
	Short: "List the comments on a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *session.Client) error {
			comments, err := client.GetComments(ctx, args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd, comments)
		})
	},
}

var postsCommentCmd = &cobra.Command{
	Use:   "comment <post-id> <content>",
	Short: "Comment on a post",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *session.Client) error {
			comment, err := client.CommentOnPost(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return writeOutput(cmd, comment)
		})
	},
}

var postsCommentLikeCmd = &cobra.Command{
	Use:   "comment-like <post-id> <comment-id>",
	Short: "Toggle your like on a comment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *session.Client) error {
			result, err := client.LikeComment(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return writeOutput(cmd, result)
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search courses, groups and study resources",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *session.Client) error {
			results, err := client.Search(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return writeOutput(cmd, results)
		})
	},
}

func init() {
	profileUpdateCmd.Flags().StringVar(&profileFirstName, "first-name", "", "New first name")
	profileUpdateCmd.Flags().StringVar(&profileLastName, "last-name", "", "New last name")
	profileUpdateCmd.Flags().StringVar(&profilePhone, "phone", "", "New phone number (empty clears it)")
	profileCmd.AddCommand(profileGetCmd)
	profileCmd.AddCommand(profileUpdateCmd)

	postsListCmd.Flags().StringVar(&postsType, "type", "all", "Post type: all|discussion|question|media")
	postsListCmd.Flags().StringVar(&postsSort, "sort", core.SortRecent, "Order: recent|popular|commented")
	postsListCmd.Flags().IntVar(&postsLimit, "limit", 0, "Maximum posts to return (0 = server default)")
	postsCreateCmd.Flags().StringVar(&postCreateType, "type", string(core.PostTypeDiscussion), "Post type: discussion|question|media")
	postsCreateCmd.Flags().StringSliceVar(&postCreateMedia, "media", nil, "Upload IDs to attach")

	postsCmd.AddCommand(postsListCmd)
	postsCmd.AddCommand(postsCreateCmd)
	postsCmd.AddCommand(postsLikeCmd)
	postsCmd.AddCommand(postsCommentsCmd)
	postsCmd.AddCommand(postsCommentCmd)
	postsCmd.AddCommand(postsCommentLikeCmd)

	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(postsCmd)
	rootCmd.AddCommand(searchCmd)
}
