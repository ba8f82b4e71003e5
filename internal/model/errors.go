// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, favorite, gateway, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated      = "UNAUTHENTICATED"
	ErrCodeInvalidPlant         = "INVALID_PLANT"
	ErrCodeStoreAccess          = "STORE_ACCESS_FAILURE"
	ErrCodeGatewayUnavailable   = "GATEWAY_UNAVAILABLE"
	ErrCodeLocationDenied       = "LOCATION_PERMISSION_DENIED"
	ErrCodeNotificationNotFound = "NOTIFICATION_NOT_FOUND"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"

	// 認証基盤のエラーコードから分類する資格情報エラー
	ErrCodeInvalidCredential = "INVALID_CREDENTIAL"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeEmailInUse        = "EMAIL_IN_USE"
	ErrCodeInvalidEmail      = "INVALID_EMAIL"
	ErrCodeWeakPassword      = "WEAK_PASSWORD"
	ErrCodeMissingPassword   = "MISSING_PASSWORD"
)

// NewUnauthenticatedError はサインインが必要な操作を未認証で呼び出した場合のエラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "お気に入りを保存するにはサインインが必要です。",
		Category: "auth",
		Action:   "サインインしてから再度お試しください。",
	}
}

// NewInvalidPlantError は識別子を持たない植物に対する操作エラーを生成する。
func NewInvalidPlantError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPlant,
		Message:  "この植物にはIDがないため追加できません。",
		Category: "validation",
		Action:   "植物データを確認してください。",
	}
}

// NewStoreAccessError はドキュメントストアの読み書き失敗エラーを生成する。
func NewStoreAccessError(operation string) *APIError {
	return &APIError{
		Code:     ErrCodeStoreAccess,
		Message:  fmt.Sprintf("お気に入りの%sに失敗しました。", operation),
		Category: "favorite",
		Action:   "通信環境を確認し、しばらく待ってから再度お試しください。",
	}
}

// NewGatewayUnavailableError は気象・植物APIの呼び出し失敗エラーを生成する。
func NewGatewayUnavailableError(api string) *APIError {
	return &APIError{
		Code:     ErrCodeGatewayUnavailable,
		Message:  fmt.Sprintf("%sのデータを取得できませんでした。", api),
		Category: "gateway",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewLocationPermissionDeniedError は位置情報が提供されなかった場合のエラーを生成する。
func NewLocationPermissionDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodeLocationDenied,
		Message:  "位置情報の利用が許可されていません。",
		Category: "validation",
		Action:   "端末の設定で位置情報の利用を許可してください。",
	}
}

// NewNotificationNotFoundError は通知が見つからない場合のエラーを生成する。
func NewNotificationNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeNotificationNotFound,
		Message:  fmt.Sprintf("指定された通知が見つかりません: %s", id),
		Category: "system",
		Action:   "通知一覧を再取得してください。",
	}
}

// NewInvalidRequestError はリクエストボディやパラメータの検証エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidCredentialError はメールアドレスまたはパスワードの不一致エラーを生成する。
func NewInvalidCredentialError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredential,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUserNotFoundError はアカウントが存在しない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "アカウントが見つかりません。",
		Category: "auth",
		Action:   "メールアドレスを確認するか、新規登録してください。",
	}
}

// NewEmailInUseError は登録済みメールアドレスでの新規登録エラーを生成する。
func NewEmailInUseError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailInUse,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "サインインするか、別のメールアドレスを使用してください。",
	}
}

// NewInvalidEmailError はメールアドレスの形式エラーを生成する。
func NewInvalidEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  "メールアドレスの形式が正しくありません。",
		Category: "validation",
		Action:   "正しい形式のメールアドレスを入力してください。",
	}
}

// NewWeakPasswordError はパスワード強度不足のエラーを生成する。
func NewWeakPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  "パスワードは6文字以上で入力してください。",
		Category: "validation",
		Action:   "より長いパスワードを設定してください。",
	}
}

// NewMissingPasswordError はパスワード未入力のエラーを生成する。
func NewMissingPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingPassword,
		Message:  "パスワードを入力してください。",
		Category: "validation",
		Action:   "パスワードを入力して再度お試しください。",
	}
}
