// Package flow はフィードバック送信フローの状態機械を提供する。
//
// 3つの協調する要素で構成される:
//   - Gate: 認証状態を監視し、未認証セッションをフォームから遠ざける（Session Gate）
//   - Store: FeedbackRecordの下書きを排他的に所有する（Form State Store）
//   - Controller: editing → submitting → submitted の遷移を司る（Submission Controller）
//
// すべての状態遷移はユーザー入力または認証通知のイベントで駆動され、
// バックグラウンドタイマーや並列書き込みは存在しない。
package flow

import (
	"errors"
	"fmt"
)

// 到達可能なルート。フローはパスを知るだけで、遷移の実装はNavigatorに委ねる。
const (
	PathLanding  = "/"
	PathSignIn   = "/signup"
	PathFeedback = "/feedback"
)

// Navigator はページ遷移の抽象。フローはこのポート越しにのみ遷移を要求する。
type Navigator interface {
	NavigateTo(path string)
}

// フロー操作が返すセンチネルエラー。
var (
	// ErrNotAuthenticated は未認証状態でのsubmitを表す。書き込みは行われない。
	ErrNotAuthenticated = errors.New("flow: not authenticated")

	// ErrSubmitInFlight は進行中の送信がある状態での再submitを表す。
	// 2回目の書き込みは発行されない。
	ErrSubmitInFlight = errors.New("flow: submit already in flight")

	// ErrAlreadySubmitted は送信成功後のsubmitを表す。
	ErrAlreadySubmitted = errors.New("flow: feedback already submitted")

	// ErrDraftConsumed は送信済み下書きへの変更操作を表す。
	ErrDraftConsumed = errors.New("flow: draft already consumed")

	// ErrNotSubmitted はsubmitted以外の状態からのresetを表す。
	ErrNotSubmitted = errors.New("flow: reset requires submitted state")

	// ErrUnknownField は存在しないフィールド名の指定を表す。
	ErrUnknownField = errors.New("flow: unknown field")

	// ErrUnknownRating は存在しない評価カテゴリの指定を表す。
	ErrUnknownRating = errors.New("flow: unknown rating category")

	// ErrInvalidRating は1〜5の範囲外の評価値を表す。
	ErrInvalidRating = errors.New("flow: rating must be between 1 and 5")

	// ErrInvalidExperienceLevel は選択肢にない経験年数の指定を表す。
	ErrInvalidExperienceLevel = errors.New("flow: invalid experience level")
)

// RequiredFieldError は送信前提条件（必須フィールド非空）の違反を表す。
type RequiredFieldError struct {
	Field string
}

// Error はerrorインターフェースを実装する。
func (e *RequiredFieldError) Error() string {
	return fmt.Sprintf("flow: required field %q is empty", e.Field)
}
