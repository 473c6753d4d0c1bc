package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mikaelmoutakis/mytubefeed/pkg/channel"
	"github.com/mikaelmoutakis/mytubefeed/pkg/feed"
	"github.com/mikaelmoutakis/mytubefeed/pkg/page"
	"github.com/mikaelmoutakis/mytubefeed/pkg/resolver"
	"github.com/mikaelmoutakis/mytubefeed/pkg/types"
)

// ErrInputNotFound は入力ファイルが存在しないことを示します。
var ErrInputNotFound = errors.New("入力ファイルが存在しません")

// Config は Pipeline の依存関係と動作設定です。
type Config struct {
	Resolver *resolver.Resolver
	Parser   *feed.Parser
	Logger   *slog.Logger

	// Strict が true の場合、解決の前に "/user/" 形式の検証を行います。
	Strict bool
}

// Pipeline はチャンネルURLの一覧から動画ページを生成する処理全体を順番に実行します。
type Pipeline struct {
	resolver *resolver.Resolver
	parser   *feed.Parser
	logger   *slog.Logger
	strict   bool
}

// New は Pipeline を初期化します。
func New(cfg Config) (*Pipeline, error) {
	if cfg.Resolver == nil || cfg.Parser == nil {
		return nil, fmt.Errorf("pipeline.New: Resolver and Parser are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		resolver: cfg.Resolver,
		parser:   cfg.Parser,
		logger:   logger,
		strict:   cfg.Strict,
	}, nil
}

// Run は inputPath のURLを1件ずつ処理し、集約した動画で outputPath を上書きします。
// 個々のURLの失敗はログに残して0件として扱い、処理を続行します。
// 入力ファイルがない場合はネットワーク通信も出力も行わずにエラーを返します。
func (p *Pipeline) Run(ctx context.Context, inputPath, outputPath string) error {
	urls, err := ReadChannelURLs(inputPath)
	if err != nil {
		return err
	}

	var (
		all    []types.VideoRecord
		failed int
	)
	for _, u := range urls {
		res := p.ProcessChannel(ctx, u)
		if !res.OK() {
			failed++
			p.logger.Error("URLの処理に失敗しました", slog.String("url", res.URL), slog.Any("error", res.Error))
			continue
		}
		all = append(all, res.Videos...)
	}

	p.logger.Info("チャンネルの処理が完了しました",
		slog.Int("channels", len(urls)),
		slog.Int("failed", failed),
		slog.Int("videos", len(all)),
	)

	if err := page.WriteFile(outputPath, all); err != nil {
		return err
	}
	p.logger.Info("HTMLを出力しました", slog.String("path", outputPath), slog.Int("videos", len(all)))
	return nil
}

// ProcessChannel は1つのチャンネルURLについて解決と取得を行い、結果を返します。
// エラーは返さず、ChannelResult.Error に格納します。
func (p *Pipeline) ProcessChannel(ctx context.Context, channelURL string) types.ChannelResult {
	res := types.ChannelResult{URL: channelURL}

	if p.strict {
		username, err := channel.ExtractUsername(channelURL)
		if err != nil {
			res.Error = err
			return res
		}
		p.logger.Debug("チャンネルURLを検証しました", slog.String("url", channelURL), slog.String("username", username))
	}

	feedURL, err := p.resolver.ResolveFeedURL(ctx, channelURL)
	if err != nil {
		res.Error = err
		return res
	}
	res.FeedURL = feedURL

	videos, err := p.parser.FetchVideos(ctx, feedURL)
	if err != nil {
		res.Error = err
		return res
	}
	res.Videos = videos
	return res
}

// ReadChannelURLs は入力ファイルを読み込み、空白を除いた空でない行を順に返します。
func ReadChannelURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("入力ファイルを開けません (パス: %s): %w", path, err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("入力ファイルの読み取りエラー (パス: %s): %w", path, err)
	}
	return urls, nil
}
