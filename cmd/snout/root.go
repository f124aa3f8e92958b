package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/snout/internal/apierr"
	"github.com/five82/snout/internal/app"
)

// cli carries the persistent flags into every subcommand.
type cli struct {
	opts  app.Options
	query string
	out   *printer
}

func newRootCmd() *cobra.Command {
	c := &cli{out: newPrinter(os.Stdout)}

	root := &cobra.Command{
		Use:           "snout",
		Short:         "Terminal client for e621 and e926",
		Long:          "snout browses e621/e926. Without a subcommand it starts the terminal UI.",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), c.opts, c.query)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.opts.ConfigPath, "config", "", "config file (default ~/.config/snout/config.toml)")
	flags.StringVar(&c.opts.PrefsPath, "prefs", "", "preferences file (default from config)")
	flags.StringVar(&c.opts.Host, "host", "", "site host, e621.net or e926.net")
	flags.BoolVar(&c.opts.SafeMode, "safe", false, "force e926")
	flags.StringVar(&c.opts.Passphrase, "passphrase", os.Getenv("SNOUT_PASSPHRASE"), "unlock sealed credentials (env SNOUT_PASSPHRASE)")
	root.Flags().StringVarP(&c.query, "query", "q", "", "search to open the UI with")

	root.AddCommand(
		c.postsCmd(),
		c.poolsCmd(),
		c.tagsCmd(),
		c.wikiCmd(),
		c.commentsCmd(),
		c.usersCmd(),
		c.setsCmd(),
		c.notesCmd(),
		c.dmailCmd(),
		c.followCmd(),
		c.watchCmd(),
		c.errorsCmd(),
		c.historyCmd(),
		c.loginCmd(),
		c.logoutCmd(),
		c.prefsCmd(),
		c.suggestCmd(),
	)
	return root
}

// env opens the environment for a subcommand. Callers close it.
func (c *cli) env(cmd *cobra.Command) (*app.Env, error) {
	return app.Open(cmd.Context(), c.opts)
}

// withEnv runs fn with an open environment and records API failures in the
// error log before returning them with a readable message.
func (c *cli) withEnv(fn func(cmd *cobra.Command, env *app.Env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		env, err := c.env(cmd)
		if err != nil {
			return err
		}
		defer env.Close()
		if err := fn(cmd, env, args); err != nil {
			env.RecordError(cmd.Context(), err)
			return friendly(err)
		}
		return nil
	}
}

// friendly swaps classified API errors for their user-facing message.
func friendly(err error) error {
	var classified *apierr.Error
	if !errors.As(err, &classified) {
		return err
	}
	return fmt.Errorf("%s (%s)", apierr.Message(err), classified.Kind)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
