package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/feedmatters/internal/middleware"
	"github.com/hitoshi/feedmatters/internal/model"
)

// URLValidator は取得前にURLの安全性を検証するインターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// AvatarHandler はサインイン中ユーザーのアバター画像を中継する。
// 外部のアバターホストにユーザーのブラウザを直接アクセスさせないための
// プロキシで、SSRFガード付きクライアントとサイズ上限を通して取得する。
type AvatarHandler struct {
	client  *http.Client
	guard   URLValidator
	maxSize int64
}

// NewAvatarHandler はAvatarHandlerを生成する。
func NewAvatarHandler(client *http.Client, guard URLValidator, maxSize int64) *AvatarHandler {
	return &AvatarHandler{
		client:  client,
		guard:   guard,
		maxSize: maxSize,
	}
}

// Get はサインイン中IdentityのphotoUrlを取得してそのまま返す。
// GET /api/avatar
func (h *AvatarHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewNotAuthenticatedError())
		return
	}

	if identity.PhotoURL == "" {
		http.NotFound(w, r)
		return
	}

	if err := h.guard.ValidateURL(identity.PhotoURL); err != nil {
		slog.Warn("avatar url blocked",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()),
		)
		middleware.WriteErrorResponse(w, http.StatusForbidden, model.NewAvatarBlockedError())
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, identity.PhotoURL, nil)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusForbidden, model.NewAvatarBlockedError())
		return
	}
	req.Header.Set("User-Agent", "FeedMatters/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		slog.Warn("failed to fetch avatar",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()),
		)
		middleware.WriteErrorResponse(w, http.StatusBadGateway, model.NewAvatarBlockedError())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		http.NotFound(w, r)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		middleware.WriteErrorResponse(w, http.StatusForbidden, model.NewAvatarBlockedError())
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := io.Copy(w, io.LimitReader(resp.Body, h.maxSize)); err != nil {
		slog.Warn("failed to stream avatar", slog.String("error", err.Error()))
	}
}
