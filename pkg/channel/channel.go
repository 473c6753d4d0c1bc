package channel

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedURL は "/user/" 形式ではないチャンネルURLを示します。
var ErrMalformedURL = errors.New("不正なYouTubeチャンネルURLです")

// userURLPattern は http(s)://(www.)youtube.com/user/<name> に完全一致します。
var userURLPattern = regexp.MustCompile(`^https?://(www\.)?youtube\.com/user/([^/]+)$`)

// ValidationError は検証に失敗したURLを保持します。
type ValidationError struct {
	URL string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMalformedURL, e.URL)
}

func (e *ValidationError) Unwrap() error {
	return ErrMalformedURL
}

// ExtractUsername は "/user/" 形式のチャンネルURLからユーザー名を取り出します。
// 前後の空白は無視します。末尾に余分なパスがある場合は失敗します。
func ExtractUsername(rawURL string) (string, error) {
	m := userURLPattern.FindStringSubmatch(strings.TrimSpace(rawURL))
	if m == nil {
		return "", &ValidationError{URL: rawURL}
	}
	return m[2], nil
}
