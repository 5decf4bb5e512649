// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string `json:"code"`     // エラーコード
	Message  string `json:"message"`  // エラーメッセージ
	Category string `json:"category"` // カテゴリ: auth, validation, catalog, order, system
	Action   string `json:"action"`   // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeCredentialDecode   = "CREDENTIAL_DECODE_FAILED"
	ErrCodeLoginFailed        = "LOGIN_FAILED"
	ErrCodeAuthExpired        = "AUTH_EXPIRED"
	ErrCodeEmptyCart          = "EMPTY_CART"
	ErrCodeSubmissionInFlight = "SUBMISSION_IN_FLIGHT"
	ErrCodeRemoteError        = "REMOTE_ERROR"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeViewNotFound       = "VIEW_NOT_FOUND"
)

// NewCredentialDecodeError はクレデンシャル復号失敗エラーを生成する。
// 保存済みクレデンシャルが壊れている場合に発生し、未ログイン扱いとなる。
func NewCredentialDecodeError() *APIError {
	return &APIError{
		Code:     ErrCodeCredentialDecode,
		Message:  "クレデンシャルの復号に失敗しました。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewLoginFailedError はログイン失敗エラーを生成する。
// reasonには認証サーバーが返したerror_descriptionを渡す（空の場合は汎用メッセージ）。
func NewLoginFailedError(reason string) *APIError {
	if reason == "" {
		reason = "ユーザー名またはパスワードを確認してください。"
	}
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  fmt.Sprintf("ログインに失敗しました: %s", reason),
		Category: "auth",
		Action:   "ユーザー名とパスワードを確認して再度お試しください。",
	}
}

// NewAuthExpiredError は認可失効エラーを生成する。
// 上流APIが401を返した場合に発生し、プロセス全体の強制ログアウトを伴う。
func NewAuthExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthExpired,
		Message:  "ログインの有効期限が切れました。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewEmptyCartError は空カートでの注文送信エラーを生成する。
// ネットワーク呼び出し前にクライアント側でブロックされる。
func NewEmptyCartError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyCart,
		Message:  "カートが空のため注文できません。",
		Category: "validation",
		Action:   "商品をカートに追加してから注文してください。",
	}
}

// NewSubmissionInFlightError は注文送信の多重実行エラーを生成する。
// 二重クリックによる注文の重複作成を防ぐため、送信中の再送信は拒否される。
func NewSubmissionInFlightError() *APIError {
	return &APIError{
		Code:     ErrCodeSubmissionInFlight,
		Message:  "注文を送信中です。",
		Category: "order",
		Action:   "送信が完了するまでお待ちください。",
	}
}

// NewRemoteError は上流APIの非2xx応答エラーを生成する。
// messageにはサーバーが返したメッセージを渡す（空の場合は汎用メッセージ）。
func NewRemoteError(category string, message string) *APIError {
	if message == "" {
		message = "サーバーでエラーが発生しました。"
	}
	return &APIError{
		Code:     ErrCodeRemoteError,
		Message:  message,
		Category: category,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidRequestError は不正なリクエストエラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストが不正です。",
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewViewNotFoundError は未登録ビューへのナビゲーション判定エラーを生成する。
func NewViewNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeViewNotFound,
		Message:  "指定されたビューが見つかりません。",
		Category: "validation",
		Action:   "ビュー名を確認してください。",
	}
}
