package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/mikaelmoutakis/mytubefeed/pkg/retry"
)

const (
	// HTTPクライアント関連の定数
	DefaultHTTPTimeout = 30 * time.Second
	MaxBodySize        = int64(10 * 1024 * 1024) // 10MB: レスポンスボディの最大読み込みサイズ

	// エラーメッセージに含めるボディの最大長
	maxErrorBodyLength = 1024

	// サイトからのブロックを避けるためのUser-Agent
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"
)

// Doer は、標準の *http.Client.Do() と互換性のあるHTTPクライアントのインターフェースを定義します。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPStatusError は失敗を示すHTTPステータスコードを表すエラー型です。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (e *HTTPStatusError) Error() string {
	if len(e.Body) > 0 {
		body := strings.TrimSpace(string(e.Body))
		if len(body) > maxErrorBodyLength {
			body = body[:maxErrorBodyLength] + "..."
		}
		return fmt.Sprintf("HTTPステータスコードエラー: %d (URL: %s), ボディ: %s", e.StatusCode, e.URL, body)
	}
	return fmt.Sprintf("HTTPステータスコードエラー: %d (URL: %s), ボディなし", e.StatusCode, e.URL)
}

// Retryable は 5xx 系かどうかを返します。4xx 系はリトライしても結果が変わりません。
func (e *HTTPStatusError) Retryable() bool {
	return e.StatusCode >= 500
}

// Client はHTTPリクエスト、リクエスト間隔の制御、指数バックオフを用いたリトライを管理します。
type Client struct {
	httpClient  Doer
	retryConfig retry.Config
	limiter     *rate.Limiter
}

// Option は Client の設定を行うための関数型です。
type Option func(*Client)

// WithHTTPClient はカスタムの Doer を設定します。
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithMaxRetries は最大リトライ回数を設定します。
func WithMaxRetries(max uint64) Option {
	return func(c *Client) {
		c.retryConfig.MaxRetries = max
	}
}

// WithRetryConfig はリトライ設定全体を差し替えます。
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Client) {
		c.retryConfig = cfg
	}
}

// WithRateLimit はリクエスト間の最小間隔を設定します。0 以下の場合は制限しません。
func WithRateLimit(interval time.Duration) Option {
	return func(c *Client) {
		if interval <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// New は、新しい Client を生成します。
func New(timeout time.Duration, options ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryConfig: retry.DefaultConfig(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// FetchBytes は URL からコンテンツを取得し、生のバイト配列として返します。
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	op := func() error {
		var fetchErr error
		body, _, fetchErr = c.doGet(ctx, url)
		return fetchErr
	}

	if err := retry.Do(ctx, c.retryConfig, fmt.Sprintf("URL(%s)のフェッチ", url), op, c.isHTTPRetryableError); err != nil {
		return nil, err
	}
	return body, nil
}

// FetchDocument はURLからHTMLを取得し、UTF-8 に変換したうえで goquery.Document を返します。
func (c *Client) FetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	var (
		body        []byte
		contentType string
	)

	op := func() error {
		var fetchErr error
		body, contentType, fetchErr = c.doGet(ctx, url)
		return fetchErr
	}

	if err := retry.Do(ctx, c.retryConfig, fmt.Sprintf("URL(%s)のフェッチ", url), op, c.isHTTPRetryableError); err != nil {
		return nil, err
	}

	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("文字コードの判定に失敗しました (URL: %s): %w", url, err)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("HTML解析に失敗しました (URL: %s): %w", url, err)
	}
	return doc, nil
}

// doGet は実際の一度のHTTP GETリクエストを実行し、ボディと Content-Type を返します。
func (c *Client) doGet(ctx context.Context, url string) ([]byte, string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, "", fmt.Errorf("リクエスト間隔の待機に失敗しました: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("GETリクエスト作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("HTTPリクエストに失敗しました (ネットワーク/接続エラー): %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(url, resp); err != nil {
		return nil, "", err
	}

	body, err := readLimited(resp)
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// readLimited はレスポンスボディを MaxBodySize まで読み込みます。
func readLimited(resp *http.Response) ([]byte, error) {
	if resp.ContentLength > MaxBodySize {
		return nil, fmt.Errorf("レスポンスボディが最大サイズ (%dバイト) を超えました", MaxBodySize)
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み込みに失敗しました: %w", err)
	}
	if int64(len(bodyBytes)) > MaxBodySize {
		return nil, fmt.Errorf("レスポンスボディが最大サイズ (%dバイト) を超えました", MaxBodySize)
	}
	return bodyBytes, nil
}

// checkResponse はステータスコードを評価し、400 以上なら HTTPStatusError を返します。
// リダイレクトは http.Client が追跡済みのため、3xx はここでは失敗として扱いません。
func checkResponse(url string, resp *http.Response) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	// 注意: ボディを閉じる責務は呼び出し元にあります。
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength+1))
	return &HTTPStatusError{
		URL:        url,
		StatusCode: resp.StatusCode,
		Body:       bodyBytes,
	}
}

// IsNonRetryableError は与えられたエラーが 4xx 系のHTTPエラーであるかを判断します。
func IsNonRetryableError(err error) bool {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return !statusErr.Retryable()
	}
	return false
}

// isHTTPRetryableError はエラーがHTTPリトライ対象かどうかを判定します。
// この関数は retry.ShouldRetryFunc 型のシグネチャを満たします。
func (c *Client) isHTTPRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// 1. Contextエラー（タイムアウト/キャンセル）はリトライ対象 (バックオフ側で打ち切られる)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// 2. 4xx はリトライしない
	if IsNonRetryableError(err) {
		return false
	}

	// 3. 5xx エラーやネットワークエラーはすべてリトライ対象
	return true
}
