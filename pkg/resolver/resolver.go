package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// feedLinkSelector はチャンネルページ内のフィードリンク要素を選択します。
const feedLinkSelector = "link[rel~='alternate'][type='application/rss+xml']"

// ErrFeedNotFound はチャンネルページにフィードリンクが見つからないことを示します。
var ErrFeedNotFound = errors.New("RSSフィードURLがページ内に見つかりません")

// FeedNotFoundError はフィードリンクが見つからなかったページのURLを保持します。
type FeedNotFoundError struct {
	SourceURL string
}

func (e *FeedNotFoundError) Error() string {
	return fmt.Sprintf("%v: %s", ErrFeedNotFound, e.SourceURL)
}

func (e *FeedNotFoundError) Unwrap() error {
	return ErrFeedNotFound
}

// Resolver は、チャンネルページからフィードURLを解決します。
type Resolver struct {
	fetcher DocumentFetcher
	logger  *slog.Logger
}

// NewResolver は、新しい Resolver のインスタンスを生成します。
func NewResolver(fetcher DocumentFetcher, logger *slog.Logger) (*Resolver, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("resolver.NewResolver: DocumentFetcher cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		fetcher: fetcher,
		logger:  logger,
	}, nil
}

// ResolveFeedURL はチャンネルページを取得し、代替リンクからフィードURLを取り出します。
// channelURL は検証済みである必要はありません。
func (r *Resolver) ResolveFeedURL(ctx context.Context, channelURL string) (string, error) {
	r.logger.Info("RSSフィードURLを解決します", slog.String("url", channelURL))

	doc, err := r.fetcher.FetchDocument(ctx, channelURL)
	if err != nil {
		return "", fmt.Errorf("チャンネルページの取得に失敗しました (URL: %s): %w", channelURL, err)
	}

	href, ok := doc.Find(feedLinkSelector).First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return "", &FeedNotFoundError{SourceURL: channelURL}
	}

	feedURL := absoluteURL(channelURL, href)
	r.logger.Debug("RSSフィードURLを検出しました", slog.String("url", channelURL), slog.String("feed_url", feedURL))
	return feedURL, nil
}

// absoluteURL は相対的な href をページURL基準で絶対URLに変換します。
// どちらかがパースできない場合は href をそのまま返します。
func absoluteURL(pageURL, href string) string {
	ref, err := url.Parse(href)
	if err != nil || ref.IsAbs() {
		return href
	}
	base, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
