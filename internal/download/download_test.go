package download

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/five82/snout/internal/e621"
)

type fakeOpener struct {
	body  string
	err   error
	calls int
}

func (f *fakeOpener) OpenFile(_ context.Context, _ string) (io.ReadCloser, int64, error) {
	f.calls++
	if f.err != nil {
		return nil, 0, f.err
	}
	return io.NopCloser(strings.NewReader(f.body)), int64(len(f.body)), nil
}

func testPost() e621.Post {
	return e621.Post{
		ID:     42,
		Rating: "s",
		File:   e621.PostFile{URL: "https://static1.e621.net/data/ab/cd/abcd.png", MD5: "abcd", Ext: "PNG", Width: 10, Height: 20},
		Score:  e621.PostScore{Total: 7},
		Tags:   e621.PostTags{Artist: []string{"someone", "other"}},
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		tmpl string
		want string
	}{
		{"", "42.png"},
		{"{artist}-{id}.{ext}", "someone+other-42.png"},
		{"{rating}/{md5}_{width}x{height}_{score}.{ext}", "s_abcd_10x20_7.png"},
		{"  post {id}.{ext}  ", "post 42.png"},
	}
	for _, tc := range tests {
		got, err := FileName(tc.tmpl, testPost())
		require.NoError(t, err, tc.tmpl)
		require.Equal(t, tc.want, got, tc.tmpl)
	}
}

func TestFileName_Errors(t *testing.T) {
	_, err := FileName("{id}.{nope}", testPost())
	require.ErrorContains(t, err, "{nope}")

	_, err = FileName("{sha256}.{ext}", testPost())
	require.ErrorContains(t, err, "{sha256}")

	_, err = FileName("..", testPost())
	require.Error(t, err)
}

func TestFileName_NoArtist(t *testing.T) {
	p := testPost()
	p.Tags.Artist = nil
	got, err := FileName("{artist}", p)
	require.NoError(t, err)
	require.Equal(t, "unknown_artist", got)
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dl")
	opener := &fakeOpener{body: "imagedata"}

	res, err := Save(context.Background(), opener, testPost(), Options{Dir: dir})
	require.NoError(t, err)
	require.False(t, res.Skipped)
	require.Equal(t, int64(9), res.Bytes)
	require.Equal(t, filepath.Join(dir, "42.png"), res.Path)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	require.Equal(t, "imagedata", string(data))

	// Second save keeps the file without fetching.
	res, err = Save(context.Background(), opener, testPost(), Options{Dir: dir})
	require.NoError(t, err)
	require.True(t, res.Skipped)
	require.Equal(t, 1, opener.calls)

	opener.body = "newer"
	res, err = Save(context.Background(), opener, testPost(), Options{Dir: dir, Overwrite: true})
	require.NoError(t, err)
	data, err = os.ReadFile(res.Path)
	require.NoError(t, err)
	require.Equal(t, "newer", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSave_Failures(t *testing.T) {
	dir := t.TempDir()

	p := testPost()
	p.File.URL = ""
	_, err := Save(context.Background(), &fakeOpener{}, p, Options{Dir: dir})
	require.ErrorIs(t, err, ErrNoFile)

	boom := errors.New("boom")
	_, err = Save(context.Background(), &fakeOpener{err: boom}, testPost(), Options{Dir: dir})
	require.ErrorIs(t, err, boom)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}
