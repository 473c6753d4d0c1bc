package page

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikaelmoutakis/mytubefeed/pkg/types"
)

func at(day, hour int) time.Time {
	return time.Date(2023, 4, day, hour, 0, 0, 0, time.UTC)
}

func TestVideoID(t *testing.T) {
	tests := []struct {
		name string
		link string
		want string
	}{
		{"watchリンク", "https://www.youtube.com/watch?v=abc123", "abc123"},
		{"最後のv=を使う", "https://example.com/?v=first&v=second", "second"},
		{"v=なしはリンク全体", "https://www.youtube.com/shorts/xyz", "https://www.youtube.com/shorts/xyz"},
		{"空文字列", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VideoID(tt.link))
		})
	}
}

func TestSortVideos(t *testing.T) {
	input := []types.VideoRecord{
		{Title: "a", Published: at(10, 0)},
		{Title: "b", Published: at(12, 0)},
		{Title: "c", Published: at(11, 0)},
		{Title: "d", Published: at(12, 0)},
		{Title: "e", Published: at(10, 0)},
	}
	original := append([]types.VideoRecord(nil), input...)

	sorted := SortVideos(input)

	var titles []string
	for _, v := range sorted {
		titles = append(titles, v.Title)
	}
	// 同時刻 (b, d) と (a, e) は入力順を保つ
	assert.Equal(t, []string{"b", "d", "c", "a", "e"}, titles)
	assert.Equal(t, original, input, "入力スライスは変更されないこと")

	for i := 1; i < len(sorted); i++ {
		assert.False(t, sorted[i].Published.After(sorted[i-1].Published))
	}
}

func TestRender(t *testing.T) {
	t.Run("single video", func(t *testing.T) {
		var buf bytes.Buffer
		err := Render(&buf, []types.VideoRecord{
			{Title: "Test Video", Link: "https://www.youtube.com/watch?v=abc123", Published: at(12, 15)},
		})
		require.NoError(t, err)

		out := buf.String()
		assert.True(t, strings.HasPrefix(out, "<html>\n<head><title>Latest YouTube Videos</title></head>"))
		assert.Contains(t, out, `<body style="background-color:lightblue; color:darkblue; font-family:sans-serif;">`)
		assert.Equal(t, 1, strings.Count(out, "<div "))
		assert.Contains(t, out, "<h3>Test Video</h3>")
		assert.Contains(t, out, `src="https://www.youtube.com/embed/abc123"`)
		assert.Contains(t, out, "Published: 2023-04-12 15:00:00")
		assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "</body></html>"))
	})

	t.Run("no videos", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, nil))
		assert.Contains(t, buf.String(), "<h1>Latest YouTube Videos</h1>")
		assert.NotContains(t, buf.String(), "<div ")
	})

	t.Run("newest first and deterministic", func(t *testing.T) {
		videos := []types.VideoRecord{
			{Title: "old", Link: "https://www.youtube.com/watch?v=old", Published: at(1, 0)},
			{Title: "new", Link: "https://www.youtube.com/watch?v=new", Published: at(2, 0)},
		}
		var first, second bytes.Buffer
		require.NoError(t, Render(&first, videos))
		require.NoError(t, Render(&second, videos))

		assert.Equal(t, first.String(), second.String())
		assert.Less(t, strings.Index(first.String(), "<h3>new</h3>"), strings.Index(first.String(), "<h3>old</h3>"))
	})

	t.Run("markup in title is escaped", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, []types.VideoRecord{
			{Title: "<script>x</script>", Link: "https://www.youtube.com/watch?v=a", Published: at(1, 0)},
		}))
		assert.NotContains(t, buf.String(), "<script>")
		assert.Contains(t, buf.String(), "&lt;script&gt;")
	})
}

func TestWriteFile(t *testing.T) {
	t.Run("overwrites existing content", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.html")
		require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("stale ", 10000)), 0o644))

		require.NoError(t, WriteFile(path, nil))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "stale")
		assert.True(t, strings.HasPrefix(string(data), "<html>"))
	})

	t.Run("unwritable path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing-dir", "out.html")
		err := WriteFile(path, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), path)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
