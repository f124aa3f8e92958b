package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/snout/internal/app"
	"github.com/five82/snout/internal/dtext"
	"github.com/five82/snout/internal/e621"
)

func (c *cli) dmailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dmail",
		Aliases: []string{"mail"},
		Short:   "Read and send direct messages",
	}

	var (
		sent, unread bool
		page         int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List received messages, or sent ones with --sent",
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			if err := requireLogin(env); err != nil {
				return err
			}
			q := e621.DmailQuery{Folder: e621.FolderReceived, Page: page, UnreadOnly: unread}
			if sent {
				q.Folder = e621.FolderSent
			}
			mails, err := env.Client.ListDmails(cmd.Context(), q)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(mails))
			for _, d := range mails {
				who := d.FromName
				if sent {
					who = d.ToName
				}
				mark := " "
				if !d.IsRead && !sent {
					mark = "*"
				}
				when := ""
				if t := d.ParsedCreatedAt(); !t.IsZero() {
					when = t.Local().Format(env.Prefs.DateFormat)
				}
				rows = append(rows, []string{mark, fmt.Sprintf("%d", d.ID), who, d.Title, when})
			}
			header := "FROM"
			if sent {
				header = "TO"
			}
			c.out.Table([]string{"", "ID", header, "TITLE", "DATE"}, rows)
			return nil
		}),
	}
	list.Flags().BoolVar(&sent, "sent", false, "list the sent folder")
	list.Flags().BoolVar(&unread, "unread", false, "only unread messages")
	list.Flags().IntVar(&page, "page", 1, "result page")

	read := &cobra.Command{
		Use:   "read ID",
		Short: "Print a message and mark it read",
		Args:  cobra.ExactArgs(1),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			if err := requireLogin(env); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			d, err := env.Client.GetDmail(cmd.Context(), id)
			if err != nil {
				return err
			}
			c.out.Heading(d.Title)
			c.out.Field("From", d.FromName)
			c.out.Field("To", d.ToName)
			if t := d.ParsedCreatedAt(); !t.IsZero() {
				c.out.Field("Date", t.Local().Format(env.Prefs.DateFormat))
			}
			c.out.Println()
			c.out.Println(dtext.Plain(dtext.Parse(d.Body, dtext.Options{BaseURL: env.Client.BaseURL()})))
			if !d.IsRead && !strings.EqualFold(d.FromName, env.Client.Username()) {
				return env.Client.MarkDmailRead(cmd.Context(), id)
			}
			return nil
		}),
	}

	send := &cobra.Command{
		Use:   "send TO TITLE [BODY...]",
		Short: "Send a message; the body is read from stdin when omitted",
		Args:  cobra.MinimumNArgs(2),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			if err := requireLogin(env); err != nil {
				return err
			}
			body := strings.Join(args[2:], " ")
			if body == "" {
				raw, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read body: %w", err)
				}
				body = string(raw)
			}
			if strings.TrimSpace(body) == "" {
				return fmt.Errorf("message body is empty")
			}
			d, err := env.Client.SendDmail(cmd.Context(), args[0], args[1], body)
			if err != nil {
				return err
			}
			c.out.Printf("%s message #%d to %s\n", c.out.Good("sent"), d.ID, args[0])
			return nil
		}),
	}

	cmd.AddCommand(list, read, send)
	return cmd
}
