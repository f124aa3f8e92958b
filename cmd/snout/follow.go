package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/snout/internal/app"
	"github.com/five82/snout/internal/follow"
	"github.com/five82/snout/internal/store"
)

func (c *cli) followCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "follow",
		Short: "Manage followed tags",
	}

	add := &cobra.Command{
		Use:   "add TAG...",
		Short: "Follow tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			for _, tag := range args {
				added, err := env.Store.AddFollow(cmd.Context(), tag, time.Now())
				if err != nil {
					return fmt.Errorf("follow %s: %w", tag, err)
				}
				if added {
					c.out.Printf("%s %s\n", c.out.Good("following"), store.NormalizeTag(tag))
				} else {
					c.out.Printf("%s %s\n", c.out.Muted("already following"), store.NormalizeTag(tag))
				}
			}
			return nil
		}),
	}

	remove := &cobra.Command{
		Use:     "rm TAG...",
		Aliases: []string{"remove", "unfollow"},
		Short:   "Stop following tags",
		Args:    cobra.MinimumNArgs(1),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			for _, tag := range args {
				removed, err := env.Store.RemoveFollow(cmd.Context(), tag)
				if err != nil {
					return fmt.Errorf("unfollow %s: %w", tag, err)
				}
				if !removed {
					c.out.Printf("%s %s\n", c.out.Muted("not following"), store.NormalizeTag(tag))
					continue
				}
				c.out.Printf("%s %s\n", c.out.Bad("unfollowed"), store.NormalizeTag(tag))
			}
			return nil
		}),
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List followed tags with their new-post counts",
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			follows, err := env.Store.ListFollows(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(follows))
			for _, f := range follows {
				checked := "never"
				if t := f.CheckedTime(); !t.IsZero() {
					checked = t.Local().Format(env.Prefs.DateFormat)
				}
				status := ""
				switch {
				case f.LastError != "":
					status = c.out.Bad(f.LastError)
				case !f.Seeded():
					status = c.out.Muted("waiting for first check")
				}
				rows = append(rows, []string{f.Tag, fmt.Sprintf("%d", f.NewCount), checked, status})
			}
			c.out.Table([]string{"TAG", "NEW", "CHECKED", "STATUS"}, rows)
			return nil
		}),
	}

	check := &cobra.Command{
		Use:   "check",
		Short: "Check every followed tag for new posts now",
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			svc := app.NewFollowService(env, nil)
			report, err := svc.Checker.Check(cmd.Context())
			if err != nil {
				return err
			}
			c.printReport(report)
			return nil
		}),
	}

	clearCounts := &cobra.Command{
		Use:   "clear [TAG]",
		Short: "Mark new posts as seen, for one tag or all",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			tag := ""
			if len(args) == 1 {
				tag = args[0]
			}
			if err := env.Store.ClearFollowCounts(cmd.Context(), tag); err != nil {
				return err
			}
			if tag == "" {
				c.out.Println("cleared all new-post counts")
			} else {
				c.out.Printf("cleared %s\n", store.NormalizeTag(tag))
			}
			return nil
		}),
	}

	cmd.AddCommand(add, remove, list, check, clearCounts)
	return cmd
}

func (c *cli) printReport(r follow.Report) {
	c.out.Printf("checked %d tags at %s\n", r.Checked, r.CheckedAt.Local().Format(time.Kitchen))
	for _, tag := range r.Seeded {
		c.out.Printf("  %s %s\n", c.out.Muted("seeded"), tag)
	}
	for _, u := range r.Updates {
		c.out.Printf("  %s %s, newest #%d\n", c.out.Good(fmt.Sprintf("+%d", u.NewPosts)), u.Tag, u.NewestID)
	}
	for _, f := range r.Failures {
		c.out.Printf("  %s %s: %v\n", c.out.Bad("failed"), f.Tag, friendly(f.Err))
	}
	if total := r.TotalNew(); total > 0 {
		c.out.Printf("%d new posts\n", total)
	}
}

func (c *cli) watchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Check followed tags on a schedule until interrupted",
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			if interval > 0 {
				if interval < time.Minute {
					return fmt.Errorf("interval must be at least 1m")
				}
				env.Prefs.FollowInterval = int(interval / time.Minute)
			}
			printer := follow.NotifierFunc(func(_ context.Context, r follow.Report) { c.printReport(r) })
			svc := app.NewFollowService(env, nil, printer)
			if err := svc.Start(cmd.Context()); err != nil {
				return err
			}
			defer svc.Stop()
			svc.CheckNow()
			c.out.Println(c.out.Muted(fmt.Sprintf("checking every %dm, ctrl-c to stop", env.Prefs.FollowInterval)))
			<-cmd.Context().Done()
			return nil
		}),
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "check interval (default from prefs)")
	return cmd
}
