package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mikaelmoutakis/mytubefeed/internal/pipeline"
	"github.com/mikaelmoutakis/mytubefeed/pkg/feed"
	"github.com/mikaelmoutakis/mytubefeed/pkg/httpclient"
	"github.com/mikaelmoutakis/mytubefeed/pkg/resolver"
)

// --- グローバル定数 ---

const (
	appName           = "mytubefeed"
	defaultTimeoutSec = 10 // 秒
	defaultMaxRetries = 0  // 失敗した取得はその実行内で確定
)

// AppFlags はこのアプリケーション固有のフラグを保持します。
type AppFlags struct {
	TimeoutSec  int  // --timeout HTTPリクエストのタイムアウト
	MaxRetries  int  // --max-retries リトライ回数
	RateLimitMs int  // --rate-limit リクエスト間隔 (ミリ秒)
	Strict      bool // --strict "/user/" 形式のURLのみ受け付ける
	Verbose     bool // --verbose デバッグログを出力
}

// NewRootCmd はルートコマンドを生成します。ログの出力先は stderr です。
func NewRootCmd(stderr io.Writer) *cobra.Command {
	var flags AppFlags

	rootCmd := &cobra.Command{
		Use:   appName + " <input_file> <output_file>",
		Short: "YouTubeチャンネルの最新動画を1枚のHTMLページにまとめます",
		Long: `input_file に1行1件で記載されたYouTubeチャンネルURLからRSSフィードを解決し、
取得した動画を公開日時の新しい順に並べた静的HTMLを output_file に書き出します。`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(stderr, flags.Verbose).With(slog.String("run_id", uuid.NewString()))

			p, err := newPipeline(flags, logger)
			if err != nil {
				return err
			}
			return p.Run(cmd.Context(), args[0], args[1])
		},
	}

	rootCmd.PersistentFlags().IntVar(&flags.TimeoutSec, "timeout", defaultTimeoutSec, "HTTPリクエストのタイムアウト時間（秒）")
	rootCmd.PersistentFlags().IntVar(&flags.MaxRetries, "max-retries", defaultMaxRetries, "HTTPリクエストのリトライ最大回数")
	rootCmd.PersistentFlags().IntVar(&flags.RateLimitMs, "rate-limit", 0, "リクエスト間の最小間隔（ミリ秒, 0 で無制限）")
	rootCmd.PersistentFlags().BoolVar(&flags.Strict, "strict", false, "/user/ 形式のチャンネルURLのみを処理する")
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "詳細なログを出力する")

	return rootCmd
}

// newLogger は stderr へのテキスト形式のロガーを生成します。
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newPipeline はフラグから依存関係を組み立てます (DIコンテナの役割)。
func newPipeline(flags AppFlags, logger *slog.Logger) (*pipeline.Pipeline, error) {
	if flags.MaxRetries < 0 {
		return nil, fmt.Errorf("--max-retries には0以上を指定してください: %d", flags.MaxRetries)
	}

	timeout := time.Duration(flags.TimeoutSec) * time.Second
	client := httpclient.New(
		timeout,
		httpclient.WithMaxRetries(uint64(flags.MaxRetries)),
		httpclient.WithRateLimit(time.Duration(flags.RateLimitMs)*time.Millisecond),
	)
	logger.Debug("HTTPクライアントを設定しました",
		slog.Duration("timeout", timeout),
		slog.Int("max_retries", flags.MaxRetries),
		slog.Int("rate_limit_ms", flags.RateLimitMs),
	)

	r, err := resolver.NewResolver(client, logger)
	if err != nil {
		return nil, fmt.Errorf("Resolverの初期化エラー: %w", err)
	}
	fp, err := feed.NewParser(client, logger)
	if err != nil {
		return nil, fmt.Errorf("Parserの初期化エラー: %w", err)
	}

	return pipeline.New(pipeline.Config{
		Resolver: r,
		Parser:   fp,
		Logger:   logger,
		Strict:   flags.Strict,
	})
}

// --- エントリポイント ---

// Execute はルートコマンドを実行し、エラー時は終了コード1でプロセスを終了します。
func Execute() {
	rootCmd := NewRootCmd(os.Stderr)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}
