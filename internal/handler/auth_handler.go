// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/hitoshi/feedmatters/internal/flow"
	"github.com/hitoshi/feedmatters/internal/model"
)

const (
	sessionCookieName = "session_id"
	oauthStateCookie  = "oauth_state"
)

// サインインページに表示するエラー種別。/signup?error= の値。
const (
	signInErrorCancelled = "cancelled"
	signInErrorFailed    = "failed"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// SignInRecorder はサインインの成否を記録するメトリクスインターフェース。
type SignInRecorder interface {
	RecordSignIn()
	RecordSignInFailure(reason string)
}

// FlowRemover はセッション失効時にフォームフローを破棄するインターフェース。
type FlowRemover interface {
	Remove(sessionID string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	flows   FlowRemover
	metrics SignInRecorder
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, flows FlowRemover, metrics SignInRecorder, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		flows:   flows,
		metrics: metrics,
		config:  config,
	}
}

// Login はGoogle OAuthフローを開始する。
// GET /auth/google/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	url := h.service.GetLoginURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy
//
// IdPがerrorパラメータを返した場合はサインインページへ戻す。
// access_denied（同意画面でのキャンセル）は致命的でないエラーとして、
// それ以外は失敗として扱う。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. IdPからのエラー応答
	if errCode := r.URL.Query().Get("error"); errCode != "" {
		if errCode == "access_denied" {
			slog.Info("user cancelled sign-in")
			h.recordFailure("cancelled")
			http.Redirect(w, r, flow.PathSignIn+"?error="+signInErrorCancelled, http.StatusTemporaryRedirect)
			return
		}
		slog.Warn("oauth provider returned error", slog.String("error", errCode))
		h.recordFailure("provider_error")
		http.Redirect(w, r, flow.PathSignIn+"?error="+signInErrorFailed, http.StatusTemporaryRedirect)
		return
	}

	// 2. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch", slog.String("query_state", state))
		h.recordFailure("state_mismatch")
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 3. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		h.recordFailure("missing_code")
		http.Redirect(w, r, flow.PathSignIn+"?error="+signInErrorFailed, http.StatusTemporaryRedirect)
		return
	}

	// 4. 認証処理
	session, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		h.recordFailure("exchange_failed")
		http.Redirect(w, r, flow.PathSignIn+"?error="+signInErrorFailed, http.StatusTemporaryRedirect)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordSignIn()
	}

	// 5. セッションCookieを設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 6. フィードバックフォームへ
	http.Redirect(w, r, flow.PathFeedback, http.StatusTemporaryRedirect)
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	// セッションCookieの取得
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		// セッションをDBから削除
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
		// フォームフローも破棄する
		if h.flows != nil {
			h.flows.Remove(cookie.Value)
		}
	}

	// セッションCookieをクリア
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, flow.PathLanding, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) recordFailure(reason string) {
	if h.metrics != nil {
		h.metrics.RecordSignInFailure(reason)
	}
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
