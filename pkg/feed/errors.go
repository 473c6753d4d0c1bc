package feed

import "fmt"

// ParseError はフィードの解析に失敗した箇所を示します。
// Entry は1始まりのエントリ番号で、文書全体の失敗では0です。
type ParseError struct {
	Entry int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Entry == 0 {
		return fmt.Sprintf("フィードの解析に失敗しました (%s): %v", e.Field, e.Err)
	}
	return fmt.Sprintf("フィードの解析に失敗しました (エントリ %d, フィールド %s): %v", e.Entry, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
