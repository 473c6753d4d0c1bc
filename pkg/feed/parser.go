package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"

	"github.com/mikaelmoutakis/mytubefeed/pkg/types"
)

// PublishedLayout は published 要素に許される唯一の書式です。
// "Z" やその他のオフセットは受け付けません。
const PublishedLayout = "2006-01-02T15:04:05+00:00"

var (
	errNotAtom      = errors.New("Atomフィードではありません")
	errMissingField = errors.New("必須要素がありません")
)

// Fetcher は Parser が依存するインターフェースです。
// *httpclient.Client がこれを満たします。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Parser はフィードを取得し、動画レコードに変換します。
type Parser struct {
	client Fetcher
	logger *slog.Logger
}

// NewParser は新しい Parser インスタンスを初期化し、依存関係を注入します。
func NewParser(client Fetcher, logger *slog.Logger) (*Parser, error) {
	if client == nil {
		return nil, fmt.Errorf("feed.NewParser: Fetcher cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{client: client, logger: logger}, nil
}

// FetchVideos は指定されたURLからフィードを取得し、エントリを文書順の動画レコードとして返します。
func (p *Parser) FetchVideos(ctx context.Context, feedURL string) ([]types.VideoRecord, error) {
	p.logger.Info("RSSフィードを取得します", slog.String("feed_url", feedURL))

	body, err := p.client.FetchBytes(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得失敗 (URL: %s): %w", feedURL, err)
	}

	videos, err := ParseVideos(body)
	if err != nil {
		return nil, fmt.Errorf("フィードのパース失敗 (URL: %s): %w", feedURL, err)
	}

	p.logger.Debug("RSSフィードを解析しました", slog.String("feed_url", feedURL), slog.Int("videos", len(videos)))
	return videos, nil
}

// ParseVideos は Atom 文書を解析します。エントリの並び替えは行いません。
func ParseVideos(body []byte) ([]types.VideoRecord, error) {
	if gofeed.DetectFeedType(bytes.NewReader(body)) != gofeed.FeedTypeAtom {
		return nil, &ParseError{Field: "document", Err: errNotAtom}
	}

	ap := &atom.Parser{}
	doc, err := ap.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Field: "document", Err: err}
	}

	videos := make([]types.VideoRecord, 0, len(doc.Entries))
	for i, entry := range doc.Entries {
		video, err := toVideoRecord(entry)
		if err != nil {
			var pErr *ParseError
			if errors.As(err, &pErr) {
				pErr.Entry = i + 1
			}
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, nil
}

// toVideoRecord は1エントリを変換します。Entry 番号は呼び出し元が設定します。
func toVideoRecord(entry *atom.Entry) (types.VideoRecord, error) {
	if entry.Title == "" {
		return types.VideoRecord{}, &ParseError{Field: "title", Err: errMissingField}
	}

	if len(entry.Links) == 0 || entry.Links[0].Href == "" {
		return types.VideoRecord{}, &ParseError{Field: "link", Err: errMissingField}
	}

	if entry.Published == "" {
		return types.VideoRecord{}, &ParseError{Field: "published", Err: errMissingField}
	}
	published, err := ParsePublished(entry.Published)
	if err != nil {
		return types.VideoRecord{}, &ParseError{Field: "published", Err: err}
	}

	return types.VideoRecord{
		Title:     entry.Title,
		Link:      entry.Links[0].Href,
		Published: published,
	}, nil
}

// ParsePublished は "YYYY-MM-DDTHH:MM:SS+00:00" 形式の文字列をUTCの時刻に変換します。
// 小数秒を含む値も拒否します。
func ParsePublished(s string) (time.Time, error) {
	t, err := time.Parse(PublishedLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("公開日時の書式が不正です (%q): %w", s, err)
	}
	// time.Parse はレイアウトにない小数秒を受け付けるため、書き戻して一致を確認する
	if t.Format(PublishedLayout) != s {
		return time.Time{}, fmt.Errorf("公開日時の書式が不正です (%q): 期待する書式 %s", s, PublishedLayout)
	}
	return t.UTC(), nil
}
