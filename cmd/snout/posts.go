package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/snout/internal/app"
	"github.com/five82/snout/internal/download"
	"github.com/five82/snout/internal/dtext"
	"github.com/five82/snout/internal/e621"
)

func (c *cli) postsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Search, inspect and act on posts",
	}
	cmd.AddCommand(
		c.postsSearchCmd(),
		c.postsShowCmd(),
		c.postsFavCmd(true),
		c.postsFavCmd(false),
		c.postsVoteCmd(),
		c.postsDownloadCmd(),
	)
	return cmd
}

func (c *cli) postsSearchCmd() *cobra.Command {
	var (
		page, limit int
		asJSON      bool
		showHidden  bool
	)
	cmd := &cobra.Command{
		Use:   "search [tags...]",
		Short: "Search posts by tags",
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			tags := strings.Join(args, " ")
			if tags == "" {
				tags = env.Prefs.DefaultTags
			}
			posts, err := env.Client.SearchPosts(cmd.Context(), e621.PostQuery{Tags: tags, Page: page, Limit: limit})
			if err != nil {
				return err
			}
			hidden := 0
			if env.Prefs.HideBlacklisted && !showHidden {
				posts, hidden = env.Blacklist.Filter(posts)
			}
			if asJSON {
				return c.out.JSON(posts)
			}
			rows := make([][]string, 0, len(posts))
			for _, p := range posts {
				rows = append(rows, []string{
					fmt.Sprintf("%d", p.ID),
					strings.ToUpper(p.Rating),
					fmt.Sprintf("%d", p.Score.Total),
					fmt.Sprintf("%d", p.FavCount),
					p.File.Ext,
					truncateTags(artistsOrTags(p), 50),
				})
			}
			c.out.Table([]string{"ID", "R", "SCORE", "FAVS", "EXT", "ARTIST / TAGS"}, rows)
			if hidden > 0 {
				c.out.Println(c.out.Muted(fmt.Sprintf("%d blacklisted posts hidden", hidden)))
			}
			return nil
		}),
	}
	cmd.Flags().IntVar(&page, "page", 1, "result page")
	cmd.Flags().IntVar(&limit, "limit", 0, "posts per page (default from prefs)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	cmd.Flags().BoolVar(&showHidden, "show-blacklisted", false, "do not filter the blacklist")
	return cmd
}

func artistsOrTags(p e621.Post) string {
	if len(p.Tags.Artist) > 0 {
		return strings.Join(p.Tags.Artist, " ")
	}
	return strings.Join(p.Tags.General, " ")
}

func truncateTags(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

func (c *cli) postsShowCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one post with its tags and description",
		Args:  cobra.ExactArgs(1),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			post, err := env.Client.GetPost(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				return c.out.JSON(post)
			}
			c.printPost(env, *post)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func (c *cli) printPost(env *app.Env, p e621.Post) {
	c.out.Heading(fmt.Sprintf("Post #%d", p.ID))
	c.out.Field("URL", env.Client.PostURL(p.ID))
	c.out.Field("Rating", p.RatingLabel())
	c.out.Field("Score", fmt.Sprintf("%d (+%d / -%d)", p.Score.Total, p.Score.Up, abs(p.Score.Down)))
	favs := fmt.Sprintf("%d", p.FavCount)
	if p.IsFavorited {
		favs += ", favorited"
	}
	c.out.Field("Favorites", favs)
	c.out.Field("File", fmt.Sprintf("%dx%d %s, %d bytes", p.File.Width, p.File.Height, p.File.Ext, p.File.Size))
	c.out.Field("Media", p.BestURL(env.Prefs.PreviewQuality))
	if t := p.ParsedCreatedAt(); !t.IsZero() {
		c.out.Field("Posted", t.Local().Format(env.Prefs.DateFormat))
	}
	if len(p.Pools) > 0 {
		ids := make([]string, len(p.Pools))
		for i, id := range p.Pools {
			ids[i] = fmt.Sprintf("#%d", id)
		}
		c.out.Field("Pools", strings.Join(ids, " "))
	}
	for _, src := range p.Sources {
		c.out.Field("Source", src)
	}
	c.out.Println()
	for _, g := range p.Tags.Categories() {
		c.out.Field(g.Name, strings.Join(g.Tags, " "))
	}
	if desc := strings.TrimSpace(p.Description); desc != "" {
		c.out.Println()
		c.out.Println(dtext.Plain(dtext.Parse(desc, dtext.Options{BaseURL: env.Client.BaseURL()})))
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (c *cli) postsFavCmd(add bool) *cobra.Command {
	use, short := "fav ID...", "Add posts to your favorites"
	if !add {
		use, short = "unfav ID...", "Remove posts from your favorites"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			if err := requireLogin(env); err != nil {
				return err
			}
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if add {
					if _, err := env.Client.Favorite(cmd.Context(), id); err != nil {
						return fmt.Errorf("favorite #%d: %w", id, err)
					}
					c.out.Printf("%s #%d\n", c.out.Good("favorited"), id)
					continue
				}
				if err := env.Client.Unfavorite(cmd.Context(), id); err != nil {
					return fmt.Errorf("unfavorite #%d: %w", id, err)
				}
				c.out.Printf("%s #%d\n", c.out.Muted("unfavorited"), id)
			}
			return nil
		}),
	}
}

func (c *cli) postsVoteCmd() *cobra.Command {
	var keep bool
	cmd := &cobra.Command{
		Use:   "vote ID up|down",
		Short: "Vote on a post; voting the same way twice removes the vote",
		Args:  cobra.ExactArgs(2),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			if err := requireLogin(env); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var score int
			switch strings.ToLower(args[1]) {
			case "up", "+", "1":
				score = 1
			case "down", "-", "-1":
				score = -1
			default:
				return fmt.Errorf("vote must be up or down, got %q", args[1])
			}
			res, err := env.Client.Vote(cmd.Context(), id, score, keep)
			if err != nil {
				return err
			}
			state := "vote removed"
			switch res.OurScore {
			case 1:
				state = c.out.Good("upvoted")
			case -1:
				state = c.out.Bad("downvoted")
			}
			c.out.Printf("#%d %s, score %d (+%d / -%d)\n", id, state, res.Score, res.Up, abs(res.Down))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&keep, "no-unvote", false, "keep an existing identical vote instead of removing it")
	return cmd
}

func (c *cli) postsDownloadCmd() *cobra.Command {
	var (
		dir       string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "download ID...",
		Short: "Save post files to the download directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = env.DownloadDir()
			}
			for _, id := range ids {
				post, err := env.Client.GetPost(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("post #%d: %w", id, err)
				}
				res, err := download.Save(cmd.Context(), env.Client, *post, download.Options{
					Dir:       dir,
					Template:  env.Prefs.DownloadNameTemplate,
					Overwrite: overwrite,
				})
				if err != nil {
					return fmt.Errorf("download #%d: %w", id, err)
				}
				if res.Skipped {
					c.out.Printf("%s %s\n", c.out.Muted("exists"), res.Path)
					continue
				}
				c.out.Printf("%s %s (%d bytes)\n", c.out.Good("saved"), res.Path, res.Bytes)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&dir, "dir", "", "target directory (default from prefs)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace existing files")
	return cmd
}

func requireLogin(env *app.Env) error {
	if !env.Client.HasCredentials() {
		return fmt.Errorf("not logged in; run `snout login` first")
	}
	return nil
}
