package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/five82/snout/internal/apierr"
)

func TestParseID(t *testing.T) {
	cases := map[string]int64{"123": 123, "#42": 42, " 7 ": 7}
	for in, want := range cases {
		got, err := parseID(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "abc", "0", "-3", "#"} {
		_, err := parseID(bad)
		require.Error(t, err, bad)
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"1", "#2", "3"})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, ids)

	_, err = parseIDs([]string{"1", "x"})
	require.ErrorContains(t, err, `"x"`)
}

func TestFriendly(t *testing.T) {
	plain := errors.New("boom")
	require.Same(t, plain, friendly(plain))

	wrapped := fmt.Errorf("search: %w", apierr.New(apierr.Auth, "/posts.json", ""))
	msg := friendly(wrapped).Error()
	require.Contains(t, msg, "Login failed")
	require.True(t, strings.HasSuffix(msg, "(AUTH)"), msg)
}

func TestTruncateTags(t *testing.T) {
	require.Equal(t, "short", truncateTags("short", 10))
	require.Equal(t, "abcd…", truncateTags("abcdefgh", 5))
}

func TestPrinterFieldSkipsEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf}
	p.Field("ID", "12")
	p.Field("Empty", "  ")
	require.Contains(t, buf.String(), "ID")
	require.Contains(t, buf.String(), "12")
	require.NotContains(t, buf.String(), "Empty")
}

func TestPrinterPlainTable(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf}
	p.Table([]string{"TAG", "POSTS"}, [][]string{{"wolf", "100"}, {"fox", "90"}})
	out := buf.String()
	require.Contains(t, out, "TAG")
	require.Contains(t, out, "wolf")
	require.Contains(t, out, "fox")
	require.NotContains(t, out, "╭")

	buf.Reset()
	p.Table([]string{"TAG"}, nil)
	require.Equal(t, "(none)\n", buf.String())
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"posts", "search"},
		{"posts", "download"},
		{"follow", "check"},
		{"dmail", "send"},
		{"prefs", "set"},
		{"suggest", "serve"},
		{"wiki", "search"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		require.Equal(t, path[len(path)-1], cmd.Name())
	}

	var walk func(*cobra.Command)
	walk = func(cmd *cobra.Command) {
		require.NotEmpty(t, cmd.Short, cmd.CommandPath())
		for _, sub := range cmd.Commands() {
			walk(sub)
		}
	}
	walk(root)

	for _, name := range []string{"config", "prefs", "host", "safe", "passphrase"} {
		require.NotNil(t, root.PersistentFlags().Lookup(name), name)
	}
}
