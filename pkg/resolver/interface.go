package resolver

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// ----------------------------------------------------------------------
// 依存性の定義 (DIP)
// ----------------------------------------------------------------------

// DocumentFetcher は、URLからHTMLドキュメントを取得する機能のインターフェースを定義します。
// *httpclient.Client がこれを満たします。
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
}
