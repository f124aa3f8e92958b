package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/five82/snout/internal/app"
	"github.com/five82/snout/internal/e621"
	"github.com/five82/snout/internal/prefs"
	"github.com/five82/snout/internal/vault"
)

func (c *cli) loginCmd() *cobra.Command {
	var (
		seal       bool
		skipVerify bool
	)
	cmd := &cobra.Command{
		Use:   "login [USERNAME]",
		Short: "Store your username and API key",
		Long: "Store your username and API key. With --seal the credentials are encrypted " +
			"with the --passphrase value instead of being written to the prefs file.",
		Args: cobra.MaximumNArgs(1),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			in := bufio.NewReader(os.Stdin)
			var username string
			if len(args) == 1 {
				username = args[0]
			} else {
				line, err := prompt(in, "Username: ")
				if err != nil {
					return err
				}
				username = line
			}
			apiKey, err := readSecret(in, "API key: ")
			if err != nil {
				return err
			}
			creds := vault.Credentials{Username: strings.TrimSpace(username), APIKey: strings.TrimSpace(apiKey)}
			if creds.Username == "" || creds.APIKey == "" {
				return fmt.Errorf("username and API key are required")
			}

			if !skipVerify {
				client, err := e621.NewClient(e621.Options{
					Host:     env.Client.BaseURL(),
					Username: creds.Username,
					APIKey:   creds.APIKey,
					Version:  app.Version,
				})
				if err != nil {
					return err
				}
				user, err := client.CurrentUser(cmd.Context())
				if err != nil {
					return fmt.Errorf("verify credentials: %w", err)
				}
				c.out.Printf("%s as %s (%s)\n", c.out.Good("verified"), user.Name, user.LevelString)
			}

			if seal {
				if c.opts.Passphrase == "" {
					return fmt.Errorf("--seal needs --passphrase or SNOUT_PASSPHRASE")
				}
				if err := vault.Save(env.Config.CredentialsPath, creds, c.opts.Passphrase); err != nil {
					return fmt.Errorf("seal credentials: %w", err)
				}
				env.Prefs.Username, env.Prefs.APIKey = "", ""
				if err := env.SavePrefs(); err != nil {
					return err
				}
				c.out.Printf("credentials sealed in %s\n", env.Config.CredentialsPath)
				return nil
			}

			env.Prefs.Username, env.Prefs.APIKey = creds.Username, creds.APIKey
			if err := env.SavePrefs(); err != nil {
				return err
			}
			c.out.Printf("credentials saved to %s\n", env.PrefsPath)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&seal, "seal", false, "encrypt the credentials with the passphrase")
	cmd.Flags().BoolVar(&skipVerify, "no-verify", false, "save without checking the key against the site")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget stored credentials",
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			env.Prefs.Username, env.Prefs.APIKey = "", ""
			if err := env.SavePrefs(); err != nil {
				return err
			}
			if vault.Exists(env.Config.CredentialsPath) {
				if err := os.Remove(env.Config.CredentialsPath); err != nil {
					return fmt.Errorf("remove sealed credentials: %w", err)
				}
			}
			c.out.Println("logged out")
			return nil
		}),
	}
}

func prompt(in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(line), nil
}

// readSecret reads without echo on a terminal and falls back to a plain
// line for piped input.
func readSecret(in *bufio.Reader, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt(in, label)
	}
	fmt.Fprint(os.Stderr, label)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return string(raw), nil
}

func (c *cli) prefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show and change preferences",
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Print every preference",
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			rows := make([][]string, 0, len(prefs.Keys()))
			for _, key := range prefs.Keys() {
				value, err := prefs.Get(env.Prefs, key)
				if err != nil {
					return err
				}
				if key == "api_key" && value != "" {
					value = "********"
				}
				rows = append(rows, []string{key, value})
			}
			c.out.Table([]string{"KEY", "VALUE"}, rows)
			return nil
		}),
	}

	get := &cobra.Command{
		Use:   "get KEY",
		Short: "Print one preference",
		Args:  cobra.ExactArgs(1),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			value, err := prefs.Get(env.Prefs, args[0])
			if err != nil {
				return err
			}
			c.out.Println(value)
			return nil
		}),
	}

	set := &cobra.Command{
		Use:   "set KEY VALUE...",
		Short: "Change a preference",
		Args:  cobra.MinimumNArgs(2),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			if err := prefs.Set(&env.Prefs, args[0], strings.Join(args[1:], " ")); err != nil {
				return err
			}
			if err := env.SavePrefs(); err != nil {
				return err
			}
			value, _ := prefs.Get(env.Prefs, args[0])
			c.out.Printf("%s = %s\n", args[0], value)
			return nil
		}),
	}

	reset := &cobra.Command{
		Use:   "reset KEY",
		Short: "Restore a preference to its default",
		Args:  cobra.ExactArgs(1),
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			if err := prefs.Reset(&env.Prefs, args[0]); err != nil {
				return err
			}
			if err := env.SavePrefs(); err != nil {
				return err
			}
			value, _ := prefs.Get(env.Prefs, args[0])
			c.out.Printf("%s = %s\n", args[0], value)
			return nil
		}),
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the preferences file location",
		RunE: c.withEnv(func(cmd *cobra.Command, env *app.Env, args []string) error {
			c.out.Println(env.PrefsPath)
			return nil
		}),
	}

	cmd.AddCommand(list, get, set, reset, path)
	return cmd
}
