package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/feedmatters/internal/flow"
	"github.com/hitoshi/feedmatters/internal/middleware"
	"github.com/hitoshi/feedmatters/internal/model"
)

// SubmissionRecorder はフィードバック送信の結果を記録するメトリクスインターフェース。
type SubmissionRecorder interface {
	RecordSubmissionAccepted()
	RecordSubmissionRejected(reason string)
	RecordSubmissionFailed()
	RecordSubmitLatency(d time.Duration)
}

// FeedbackHandler はフィードバックフォームの送信・リセットを処理する。
type FeedbackHandler struct {
	templates *templates
	flows     FlowSource
	metrics   SubmissionRecorder
}

// NewFeedbackHandler はFeedbackHandlerを生成する。
func NewFeedbackHandler(templates *templates, flows FlowSource, metrics SubmissionRecorder) *FeedbackHandler {
	return &FeedbackHandler{
		templates: templates,
		flows:     flows,
		metrics:   metrics,
	}
}

// フォームのスカラーフィールド名。POSTのnameとStoreのフィールド名は一致させている。
var formFields = []string{
	model.FieldName,
	model.FieldEmail,
	model.FieldCompany,
	model.FieldRole,
	model.FieldExperienceLevel,
	model.FieldEventVenue,
	model.FieldEventDate,
	model.FieldQuestions,
	model.FieldImprovements,
}

// 評価カテゴリ名。POSTでは rating_ プレフィックス付きで届く。
var ratingCategories = []string{
	model.RatingContentQuality,
	model.RatingSpeakerDelivery,
	model.RatingTechnicalDepth,
	model.RatingEngagement,
	model.RatingOverallExperience,
}

// Submit はフォームのPOSTを処理する。
// POST /feedback
//
// フォーム値をStoreへフィールド単位で反映してからControllerにsubmitを委ねる。
// 成功時はPRGパターンでGET /feedbackへリダイレクトし、完了ページを表示する。
// 失敗時は下書きを保持したままフォームを再描画する。
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
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

	if err := r.ParseForm(); err != nil {
		h.renderForm(w, r, f, identity, http.StatusBadRequest, model.NewInvalidFieldError())
		return
	}

	if apiErr := h.applyForm(r, f); apiErr != nil {
		if apiErr.Code == model.ErrCodeDraftConsumed {
			// 送信済みセッションからの再POSTは完了ページへ
			http.Redirect(w, r, flow.PathFeedback, http.StatusSeeOther)
			return
		}
		h.recordRejected("invalid_field")
		h.renderForm(w, r, f, identity, http.StatusBadRequest, apiErr)
		return
	}

	start := time.Now()
	ref, err := f.Controller.Submit(r.Context())
	if err != nil {
		h.handleSubmitError(w, r, f, identity, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordSubmissionAccepted()
		h.metrics.RecordSubmitLatency(time.Since(start))
	}
	slog.Info("feedback submitted",
		slog.String("user_id", identity.ID),
		slog.String("document_id", ref.ID),
	)

	http.Redirect(w, r, flow.PathFeedback, http.StatusSeeOther)
}

// Reset は送信完了後のサインアウト操作を処理する。
// POST /feedback/reset
//
// IdPからのサインアウト（セッション破棄）・下書きのクリア・ランディングへの
// 遷移をControllerに委ね、遷移をHTTPリダイレクトとCookieクリアに変換する。
func (h *FeedbackHandler) Reset(w http.ResponseWriter, r *http.Request) {
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
	if err := f.Controller.Reset(r.Context()); err != nil {
		if errors.Is(err, flow.ErrNotSubmitted) {
			http.Redirect(w, r, flow.PathFeedback, http.StatusSeeOther)
			return
		}
		slog.Error("failed to reset feedback flow", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	path, ok := f.Nav.Consume()
	if !ok {
		path = flow.PathLanding
	}

	// セッションは破棄済み。Cookieとフローも片付ける
	if remover, ok := h.flows.(FlowRemover); ok {
		remover.Remove(sessionID)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, path, http.StatusSeeOther)
}

// applyForm はPOSTされたフォーム値をStoreへ反映する。
// フィールドはフォームに存在するものだけを、1つずつ置換する。
func (h *FeedbackHandler) applyForm(r *http.Request, f *flow.Flow) *model.APIError {
	for _, field := range formFields {
		if !r.PostForm.Has(field) {
			continue
		}
		if err := f.Store.SetField(field, r.PostFormValue(field)); err != nil {
			return mapStoreError(err)
		}
	}

	for _, category := range ratingCategories {
		raw := r.PostFormValue("rating_" + category)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return model.NewInvalidFieldError()
		}
		if err := f.Store.SetRating(category, value); err != nil {
			return mapStoreError(err)
		}
	}

	return nil
}

// handleSubmitError はControllerの送信エラーをHTTP応答へ変換する。
func (h *FeedbackHandler) handleSubmitError(w http.ResponseWriter, r *http.Request, f *flow.Flow, identity *model.Identity, err error) {
	var required *flow.RequiredFieldError
	switch {
	case errors.As(err, &required):
		h.recordRejected("required_field")
		h.renderForm(w, r, f, identity, http.StatusBadRequest, model.NewRequiredFieldError(required.Field))

	case errors.Is(err, flow.ErrNotAuthenticated):
		h.recordRejected("not_authenticated")
		path, ok := f.Nav.Consume()
		if !ok {
			path = flow.PathSignIn
		}
		http.Redirect(w, r, path, http.StatusSeeOther)

	case errors.Is(err, flow.ErrSubmitInFlight):
		h.recordRejected("in_flight")
		h.renderForm(w, r, f, identity, http.StatusConflict, model.NewSubmitInFlightError())

	case errors.Is(err, flow.ErrAlreadySubmitted):
		// 完了ページへ
		http.Redirect(w, r, flow.PathFeedback, http.StatusSeeOther)

	default:
		if h.metrics != nil {
			h.metrics.RecordSubmissionFailed()
		}
		slog.Error("feedback submission failed",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()),
		)
		h.renderForm(w, r, f, identity, http.StatusBadGateway, model.NewSubmitFailedError())
	}
}

// renderForm はエラーバナー付きでフォームを再描画する。下書きはStoreの現在値。
func (h *FeedbackHandler) renderForm(w http.ResponseWriter, r *http.Request, f *flow.Flow, identity *model.Identity, status int, apiErr *model.APIError) {
	h.templates.render(w, status, "feedback", feedbackData{
		Identity:    *identity,
		Draft:       f.Store.Draft(),
		RatingScale: ratingScale,
		CSRFToken:   middleware.CSRFTokenFromRequest(r),
		Error:       apiErr,
	})
}

func (h *FeedbackHandler) recordRejected(reason string) {
	if h.metrics != nil {
		h.metrics.RecordSubmissionRejected(reason)
	}
}

// mapStoreError はStoreの更新エラーをAPIErrorへ変換する。
func mapStoreError(err error) *model.APIError {
	if errors.Is(err, flow.ErrDraftConsumed) {
		return model.NewDraftConsumedError()
	}
	return model.NewInvalidFieldError()
}
