package page

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mikaelmoutakis/mytubefeed/pkg/types"
)

const (
	// EmbedBaseURL は埋め込みプレーヤーのURLの接頭辞です。
	EmbedBaseURL = "https://www.youtube.com/embed/"
	// PublishedFormat はページに表示する公開日時の書式です。
	PublishedFormat = "2006-01-02 15:04:05"

	videoIDMarker = "v="
)

//go:embed page.html.tmpl
var pageSource string

var pageTemplate = template.Must(template.New("page").Parse(pageSource))

// videoView はテンプレートに渡す1動画分の値です。
type videoView struct {
	Title     string
	VideoID   string
	Published string
}

// VideoID はリンクの最後の "v=" 以降を動画IDとして返します。
// "v=" を含まないリンクは、リンク全体をそのままIDとして扱います。
func VideoID(link string) string {
	i := strings.LastIndex(link, videoIDMarker)
	if i < 0 {
		return link
	}
	return link[i+len(videoIDMarker):]
}

// SortVideos は公開日時の新しい順に並べたコピーを返します。
// 同時刻の動画は入力の相対順を保ちます。
func SortVideos(videos []types.VideoRecord) []types.VideoRecord {
	sorted := make([]types.VideoRecord, len(videos))
	copy(sorted, videos)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Published.After(sorted[j].Published)
	})
	return sorted
}

// Render は動画一覧のHTML文書を w に書き出します。
func Render(w io.Writer, videos []types.VideoRecord) error {
	sorted := SortVideos(videos)
	views := make([]videoView, 0, len(sorted))
	for _, v := range sorted {
		views = append(views, videoView{
			Title:     v.Title,
			VideoID:   VideoID(v.Link),
			Published: v.Published.UTC().Format(PublishedFormat),
		})
	}

	if err := pageTemplate.Execute(w, views); err != nil {
		return fmt.Errorf("HTMLの生成に失敗しました: %w", err)
	}
	return nil
}

// WriteFile は生成した文書で path を上書きします。
func WriteFile(path string, videos []types.VideoRecord) error {
	var buf bytes.Buffer
	if err := Render(&buf, videos); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("出力ファイルの書き込みに失敗しました (パス: %s): %w", path, err)
	}
	return nil
}
