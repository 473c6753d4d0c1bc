package types

import "time"

// VideoRecord は、フィードの1エントリから得られた動画情報です。
// 生成後に変更されることはありません。
type VideoRecord struct {
	Title     string    // 動画タイトル (フィードの値をそのまま保持)
	Link      string    // 動画ページのURL
	Published time.Time // 公開日時 (UTC, 秒精度)
}

// ChannelResult は、1つのチャンネルURLの処理結果、またはその処理中に発生したエラーを保持します。
// Orchestrator はこの結果を集約し、失敗したURLは0件として扱います。
type ChannelResult struct {
	URL     string        // 処理対象のチャンネルURL
	FeedURL string        // 解決されたフィードURL (解決前に失敗した場合は空)
	Videos  []VideoRecord // 取得できた動画
	Error   error         // 処理中に発生したエラー
}

// OK は処理が成功したかどうかを返します。
func (r ChannelResult) OK() bool {
	return r.Error == nil
}
