package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/feedmatters/internal/events"
	"github.com/hitoshi/feedmatters/internal/flow"
	"github.com/hitoshi/feedmatters/internal/middleware"
	"github.com/hitoshi/feedmatters/internal/model"
)

// ランディングに表示するお知らせの最大件数。
const maxAnnouncements = 3

// 評価フォームの選択肢。
var ratingScale = []int{1, 2, 3, 4, 5}

// FlowSource はセッションごとのフォームフローを取得するインターフェース。
type FlowSource interface {
	Get(sessionID string) *flow.Flow
}

// AnnouncementSource はランディングのお知らせ一覧を提供するインターフェース。
type AnnouncementSource interface {
	Enabled() bool
	Latest(ctx context.Context, limit int) []events.Announcement
}

// PageHandler はサーバーレンダリングされる各ページのHTTPハンドラー。
type PageHandler struct {
	templates *templates
	flows     FlowSource
	events    AnnouncementSource
}

// NewPageHandler はPageHandlerを生成する。eventsはnil可（お知らせ無効）。
func NewPageHandler(templates *templates, flows FlowSource, events AnnouncementSource) *PageHandler {
	return &PageHandler{
		templates: templates,
		flows:     flows,
		events:    events,
	}
}

// Landing はマーケティングランディングページを表示する。
// GET /
func (h *PageHandler) Landing(w http.ResponseWriter, r *http.Request) {
	data := landingData{}
	if h.events != nil && h.events.Enabled() {
		data.Announcements = h.events.Latest(r.Context(), maxAnnouncements)
	}
	h.templates.render(w, http.StatusOK, "landing", data)
}

// SignUp はサインインページを表示する。
// GET /signup?error=cancelled|failed
func (h *PageHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())

	data := signupData{SignedIn: identity != nil}
	switch r.URL.Query().Get("error") {
	case signInErrorCancelled:
		data.Error = model.NewAuthCancelledError()
	case signInErrorFailed:
		data.Error = model.NewAuthFailedError()
	}

	h.templates.render(w, http.StatusOK, "signup", data)
}

// Feedback はフィードバックフォームを表示する。
// GET /feedback
//
// 認証済みIdentityをフローのGateに通知してから描画する。
// Gateが遷移を要求した場合（未認証など）はHTTPリダイレクトに変換する。
// 送信済みのセッションにはフォームの代わりに完了ページを表示する。
func (h *PageHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		http.Redirect(w, r, flow.PathSignIn, http.StatusSeeOther)
		return
	}

	sessionID, err := middleware.SessionIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, flow.PathSignIn, http.StatusSeeOther)
		return
	}

	f := h.flows.Get(sessionID)
	f.Auth.Publish(identity)
	if path, ok := f.Nav.Consume(); ok {
		http.Redirect(w, r, path, http.StatusSeeOther)
		return
	}

	data := feedbackData{
		Identity:    *identity,
		Draft:       f.Store.Draft(),
		RatingScale: ratingScale,
		CSRFToken:   middleware.CSRFTokenFromRequest(r),
	}

	if f.Controller.State() == flow.StateSubmitted {
		h.templates.render(w, http.StatusOK, "submitted", data)
		return
	}
	h.templates.render(w, http.StatusOK, "feedback", data)
}
