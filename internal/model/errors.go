package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, submit, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAuthCancelled    = "AUTH_CANCELLED"
	ErrCodeAuthFailed       = "AUTH_FAILED"
	ErrCodeNotAuthenticated = "NOT_AUTHENTICATED"
	ErrCodeRequiredField    = "REQUIRED_FIELD"
	ErrCodeInvalidField     = "INVALID_FIELD"
	ErrCodeSubmitFailed     = "SUBMIT_FAILED"
	ErrCodeSubmitInFlight   = "SUBMIT_IN_FLIGHT"
	ErrCodeDraftConsumed    = "DRAFT_CONSUMED"
	ErrCodeAvatarBlocked    = "AVATAR_BLOCKED"
)

// NewAuthCancelledError はユーザーがサインインを中断した場合のエラーを生成する。
// ポップアップを閉じた／同意画面でキャンセルした操作に対応し、致命的ではない。
func NewAuthCancelledError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthCancelled,
		Message:  "サインインがキャンセルされました。",
		Category: "auth",
		Action:   "もう一度サインインをお試しください。",
	}
}

// NewAuthFailedError はサインイン処理が失敗した場合のエラーを生成する。
func NewAuthFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthFailed,
		Message:  "サインインに失敗しました。",
		Category: "auth",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewNotAuthenticatedError は未認証のまま保護された操作を試みた場合のエラーを生成する。
func NewNotAuthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAuthenticated,
		Message:  "サインインが必要です。",
		Category: "auth",
		Action:   "サインインしてから再度お試しください。",
	}
}

// NewRequiredFieldError は必須フィールドが未入力の場合のエラーを生成する。
func NewRequiredFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeRequiredField,
		Message:  fmt.Sprintf("必須フィールドが未入力です: %s", field),
		Category: "validation",
		Action:   "お名前とメールアドレスを入力してから送信してください。",
	}
}

// NewInvalidFieldError はフィールドに受理できない値が指定された場合のエラーを生成する。
func NewInvalidFieldError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidField,
		Message:  "入力内容に受理できない値が含まれています。",
		Category: "validation",
		Action:   "入力内容を確認してから再度送信してください。",
	}
}

// NewSubmitFailedError はディレクトリへの書き込みが失敗した場合のエラーを生成する。
// 下書きは保持されるため、ユーザーは再入力せずに再送信できる。
func NewSubmitFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeSubmitFailed,
		Message:  "フィードバックの送信に失敗しました。",
		Category: "submit",
		Action:   "入力内容はそのまま残っています。しばらく待ってから再度送信してください。",
	}
}

// NewSubmitInFlightError は送信処理の多重起動を検出した場合のエラーを生成する。
func NewSubmitInFlightError() *APIError {
	return &APIError{
		Code:     ErrCodeSubmitInFlight,
		Message:  "送信処理が進行中です。",
		Category: "submit",
		Action:   "現在の送信が完了するまでお待ちください。",
	}
}

// NewDraftConsumedError は送信済み下書きへの操作を拒否する場合のエラーを生成する。
func NewDraftConsumedError() *APIError {
	return &APIError{
		Code:     ErrCodeDraftConsumed,
		Message:  "このフィードバックは既に送信されています。",
		Category: "submit",
		Action:   "新しいフィードバックを送信するには一度ログアウトしてください。",
	}
}

// NewAvatarBlockedError はアバター画像の取得を拒否した場合のエラーを生成する。
func NewAvatarBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeAvatarBlocked,
		Message:  "アバター画像を取得できませんでした。",
		Category: "system",
		Action:   "プロフィール画像なしで続行できます。",
	}
}
