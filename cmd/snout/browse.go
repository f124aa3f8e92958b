package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/five82/snout/internal/app"
	"github.com/five82/snout/internal/dtext"
	"github.com/five82/snout/internal/e621"
)

func (c *cli) poolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pools",
		Short: "Browse pools",
	}

	var page int
	search := &cobra.Command{
		Use:   "search [name]",
		Short: "List pools whose name matches",
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			pools, err := env.Client.SearchPools(cmd.Context(), e621.PoolQuery{Name: strings.Join(args, " "), Page: page})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(pools))
			for _, p := range pools {
				rows = append(rows, []string{fmt.Sprintf("%d", p.ID), fmt.Sprintf("%d", p.PostCount), p.Category, p.DisplayName()})
			}
			c.out.Table([]string{"ID", "POSTS", "CATEGORY", "NAME"}, rows)
			return nil
		}),
	}
	search.Flags().IntVar(&page, "page", 1, "result page")

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show a pool and its post ids",
		Args:  cobra.ExactArgs(1),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			pool, err := env.Client.GetPool(cmd.Context(), id)
			if err != nil {
				return err
			}
			c.out.Heading(pool.DisplayName())
			c.out.Field("ID", fmt.Sprintf("%d", pool.ID))
			c.out.Field("Category", pool.Category)
			c.out.Field("Creator", pool.CreatorName)
			c.out.Field("Posts", fmt.Sprintf("%d", pool.PostCount))
			c.out.Field("Search", fmt.Sprintf("pool:%d", pool.ID))
			if desc := strings.TrimSpace(pool.Description); desc != "" {
				c.out.Println()
				c.out.Println(dtext.Plain(dtext.Parse(desc, dtext.Options{BaseURL: env.Client.BaseURL()})))
			}
			if len(pool.PostIDs) > 0 {
				ids := make([]string, len(pool.PostIDs))
				for i, id := range pool.PostIDs {
					ids[i] = fmt.Sprintf("%d", id)
				}
				c.out.Println()
				c.out.Println(strings.Join(ids, " "))
			}
			return nil
		}),
	}

	cmd.AddCommand(search, show)
	return cmd
}

func (c *cli) tagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Look up tags",
	}

	var (
		order string
		page  int
	)
	search := &cobra.Command{
		Use:   "search PATTERN",
		Short: "List tags matching a pattern such as wolf*",
		Args:  cobra.ExactArgs(1),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			tags, err := env.Client.SearchTags(cmd.Context(), e621.TagQuery{Pattern: args[0], Order: order, Page: page})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(tags))
			for _, t := range tags {
				rows = append(rows, []string{t.Name, fmt.Sprintf("%d", t.PostCount), e621.TagCategoryName(t.Category)})
			}
			c.out.Table([]string{"TAG", "POSTS", "CATEGORY"}, rows)
			return nil
		}),
	}
	search.Flags().StringVar(&order, "order", "count", "sort by date, count or name")
	search.Flags().IntVar(&page, "page", 1, "result page")

	complete := &cobra.Command{
		Use:   "complete PREFIX",
		Short: "Autocomplete a tag prefix",
		Args:  cobra.ExactArgs(1),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			tags, err := env.Client.AutocompleteTags(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(tags))
			for _, t := range tags {
				alias := ""
				if t.AntecedentName != "" {
					alias = "← " + t.AntecedentName
				}
				rows = append(rows, []string{t.Name, fmt.Sprintf("%d", t.PostCount), e621.TagCategoryName(t.Category), alias})
			}
			c.out.Table([]string{"TAG", "POSTS", "CATEGORY", "ALIAS"}, rows)
			return nil
		}),
	}

	cmd.AddCommand(search, complete)
	return cmd
}

func (c *cli) wikiCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "wiki TITLE",
		Short: "Print a wiki page",
		Long:  "Print a wiki page rendered as terminal text, plain text, Markdown or HTML.",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			page, err := env.Client.GetWikiPage(cmd.Context(), strings.Join(args, "_"))
			if err != nil {
				return err
			}
			doc := dtext.Parse(page.Body, dtext.Options{BaseURL: env.Client.BaseURL()})

			if format == "" {
				format = "plain"
				if c.out.styled {
					format = "terminal"
				}
			}
			var out string
			switch format {
			case "plain":
				out = page.DisplayTitle() + "\n\n" + dtext.Plain(doc)
			case "markdown", "md":
				out = "# " + page.DisplayTitle() + "\n\n" + dtext.Markdown(doc)
			case "html":
				out, err = dtext.HTML(doc)
			case "terminal":
				out, err = dtext.Terminal(doc, wrapWidth(env.Prefs.WrapWidth), env.Prefs.WikiStyle)
				out = c.out.heading.Render(page.DisplayTitle()) + "\n" + out
			default:
				return fmt.Errorf("unknown format %q (plain, markdown, html, terminal)", format)
			}
			if err != nil {
				return fmt.Errorf("render wiki page: %w", err)
			}
			c.out.Println(strings.TrimRight(out, "\n"))
			return nil
		}),
	}
	cmd.Flags().StringVar(&format, "format", "", "plain, markdown, html or terminal (default terminal on a tty)")

	var page int
	search := &cobra.Command{
		Use:   "search QUERY",
		Short: "Find wiki pages by title",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			pages, err := env.Client.SearchWikiPages(cmd.Context(), strings.Join(args, "_"), page)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(pages))
			for _, p := range pages {
				rows = append(rows, []string{fmt.Sprintf("%d", p.ID), p.DisplayTitle(), p.UpdatedAt})
			}
			c.out.Table([]string{"ID", "TITLE", "UPDATED"}, rows)
			return nil
		}),
	}
	search.Flags().IntVar(&page, "page", 1, "result page")
	cmd.AddCommand(search)
	return cmd
}

// wrapWidth narrows the preferred width to the terminal when stdout is one.
func wrapWidth(preferred int) int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 || w >= preferred {
		return preferred
	}
	return w
}

func (c *cli) commentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Read and write post comments",
	}

	var page int
	list := &cobra.Command{
		Use:   "list POST_ID",
		Short: "Print the comments on a post",
		Args:  cobra.ExactArgs(1),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			comments, err := env.Client.ListComments(cmd.Context(), id, page)
			if err != nil {
				return err
			}
			if len(comments) == 0 {
				c.out.Println(c.out.Muted("no comments"))
				return nil
			}
			for _, cm := range comments {
				when := ""
				if t := cm.ParsedCreatedAt(); !t.IsZero() {
					when = t.Local().Format(env.Prefs.DateFormat)
				}
				c.out.Heading(fmt.Sprintf("%s  %s  score %d", cm.CreatorName, c.out.Muted(when), cm.Score))
				c.out.Println(dtext.Plain(dtext.Parse(cm.Body, dtext.Options{BaseURL: env.Client.BaseURL()})))
				c.out.Println()
			}
			return nil
		}),
	}
	list.Flags().IntVar(&page, "page", 1, "result page")

	add := &cobra.Command{
		Use:   "add POST_ID BODY...",
		Short: "Comment on a post",
		Args:  cobra.MinimumNArgs(2),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			if err := requireLogin(env); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cm, err := env.Client.CreateComment(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			c.out.Printf("%s comment #%d on post #%d\n", c.out.Good("posted"), cm.ID, id)
			return nil
		}),
	}

	cmd.AddCommand(list, add)
	return cmd
}

func (c *cli) usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user [NAME|ID]",
		Short: "Show a user profile, yourself when no name is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			var (
				user *e621.User
				err  error
			)
			if len(args) == 0 {
				if err := requireLogin(env); err != nil {
					return err
				}
				user, err = env.Client.CurrentUser(cmd.Context())
			} else {
				user, err = env.Client.GetUser(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			c.out.Heading(user.Name)
			c.out.Field("ID", fmt.Sprintf("%d", user.ID))
			c.out.Field("Level", user.LevelString)
			c.out.Field("Joined", user.CreatedAt)
			c.out.Field("Uploads", fmt.Sprintf("%d", user.PostUploadCount))
			c.out.Field("Favorites", fmt.Sprintf("%d", user.FavoriteCount))
			c.out.Field("Comments", fmt.Sprintf("%d", user.CommentCount))
			if user.IsBanned {
				c.out.Field("Status", c.out.Bad("banned"))
			}
			if about := strings.TrimSpace(user.ProfileAbout); about != "" {
				c.out.Println()
				c.out.Println(dtext.Plain(dtext.Parse(about, dtext.Options{BaseURL: env.Client.BaseURL()})))
			}
			return nil
		}),
	}
}

func (c *cli) setsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sets",
		Short: "List and edit post sets",
	}

	var creator string
	list := &cobra.Command{
		Use:   "list",
		Short: "List post sets, optionally by creator",
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			sets, err := env.Client.ListPostSets(cmd.Context(), e621.PostSetQuery{CreatorName: creator})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(sets))
			for _, s := range sets {
				rows = append(rows, []string{fmt.Sprintf("%d", s.ID), s.ShortName, fmt.Sprintf("%d", s.PostCount), s.Name})
			}
			c.out.Table([]string{"ID", "SHORT NAME", "POSTS", "NAME"}, rows)
			return nil
		}),
	}
	list.Flags().StringVar(&creator, "creator", "", "only sets made by this user")

	edit := func(use, short string, fn func(*app.Env, *cobra.Command, int64, []int64) error, verb string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.MinimumNArgs(2),
			RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
				if err := requireLogin(env); err != nil {
					return err
				}
				ids, err := parseIDs(args)
				if err != nil {
					return err
				}
				if err := fn(env, cmd, ids[0], ids[1:]); err != nil {
					return err
				}
				c.out.Printf("%s %d posts, set #%d\n", c.out.Good(verb), len(ids)-1, ids[0])
				return nil
			}),
		}
	}
	add := edit("add SET_ID POST_ID...", "Add posts to a set", func(env *app.Env, cmd *cobra.Command, set int64, posts []int64) error {
		return env.Client.AddToPostSet(cmd.Context(), set, posts)
	}, "added")
	remove := edit("remove SET_ID POST_ID...", "Remove posts from a set", func(env *app.Env, cmd *cobra.Command, set int64, posts []int64) error {
		return env.Client.RemoveFromPostSet(cmd.Context(), set, posts)
	}, "removed")

	cmd.AddCommand(list, add, remove)
	return cmd
}

func (c *cli) notesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notes POST_ID",
		Short: "Print the translation notes on a post",
		Args:  cobra.ExactArgs(1),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			notes, err := env.Client.ListNotes(cmd.Context(), id)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(notes))
			for _, n := range notes {
				if !n.IsActive {
					continue
				}
				body := dtext.Plain(dtext.Parse(n.Body, dtext.Options{BaseURL: env.Client.BaseURL()}))
				rows = append(rows, []string{
					fmt.Sprintf("%d,%d", n.X, n.Y),
					fmt.Sprintf("%dx%d", n.Width, n.Height),
					strings.Join(strings.Fields(body), " "),
				})
			}
			c.out.Table([]string{"AT", "SIZE", "TEXT"}, rows)
			return nil
		}),
	}
}
