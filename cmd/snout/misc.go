package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/snout/internal/app"
	"github.com/five82/snout/internal/suggest"
)

func (c *cli) errorsCmd() *cobra.Command {
	var (
		n    int
		wipe bool
	)
	cmd := &cobra.Command{
		Use:   "errors",
		Short: "Print recent failures from the error log",
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			errs := env.Errors()
			if errs == nil {
				c.out.Println(c.out.Muted("error logging is off (error_log_enabled)"))
				return nil
			}
			if wipe {
				if err := errs.Clear(); err != nil {
					return err
				}
				c.out.Println("error log cleared")
				return nil
			}
			entries, err := errs.Entries(n)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				c.out.Println(c.out.Muted("no errors recorded"))
				return nil
			}
			for _, e := range entries {
				path := e.Path
				if path == "" {
					path = "-"
				}
				c.out.Printf("%s %s %s  %s\n",
					c.out.Muted(e.Time.Local().Format(time.DateTime)), c.out.Bad(e.Kind), c.out.Muted(path), e.Message)
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&n, "lines", "n", 20, "entries to show")
	cmd.Flags().BoolVar(&wipe, "clear", false, "empty the error log")
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear the search history",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list [PREFIX]",
		Short: "List remembered searches, most used first",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			entries, err := env.Store.SearchHistory(cmd.Context(), prefix, limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					fmt.Sprintf("%d", e.UsedCount),
					time.Unix(e.LastUsedAt, 0).Local().Format(env.Prefs.DateFormat),
					e.Query,
				})
			}
			c.out.Table([]string{"USES", "LAST USED", "QUERY"}, rows)
			return nil
		}),
	}
	list.Flags().IntVar(&limit, "limit", 50, "entries to show")

	clearHistory := &cobra.Command{
		Use:   "clear",
		Short: "Forget every remembered search",
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			if err := env.Store.ClearHistory(cmd.Context()); err != nil {
				return err
			}
			c.out.Println("search history cleared")
			return nil
		}),
	}

	cmd.AddCommand(list, clearHistory)
	return cmd
}

func (c *cli) suggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Query suggestions from history and tag autocomplete",
	}

	var addr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve suggestions over HTTP until interrupted",
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			if addr == "" {
				addr = env.Config.SuggestAddr
			}
			c.out.Println(c.out.Muted(fmt.Sprintf("serving suggestions on http://%s/suggest?q=", addr)))
			return suggest.Serve(cmd.Context(), addr, suggest.New(env.Store, env.Client))
		}),
	}
	serve.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	query := &cobra.Command{
		Use:   "query QUERY",
		Short: "Print suggestions for a partial query",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			q := strings.Join(args, " ")
			suggestions, err := suggest.New(env.Store, env.Client).Suggest(cmd.Context(), q)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(suggestions))
			for _, sg := range suggestions {
				count := ""
				if sg.PostCount > 0 {
					count = fmt.Sprintf("%d", sg.PostCount)
				}
				rows = append(rows, []string{sg.Source, strings.TrimSpace(suggest.Complete(q, sg)), count, sg.Category})
			}
			c.out.Table([]string{"SOURCE", "QUERY", "POSTS", "CATEGORY"}, rows)
			return nil
		}),
	}

	cmd.AddCommand(serve, query)
	return cmd
}
