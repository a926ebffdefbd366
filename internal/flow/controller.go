package flow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hitoshi/feedmatters/internal/directory"
	"github.com/hitoshi/feedmatters/internal/model"
)

// State はSubmission Controllerの状態を表す。
type State int

const (
	// StateEditing は下書きを編集できる状態。
	StateEditing State = iota
	// StateSubmitting はディレクトリへの書き込みが進行中の状態。
	// このフラグが排他機構であり、キューではない。
	StateSubmitting
	// StateSubmitted は送信成功の終端状態。
	StateSubmitted
)

// String は状態の表示名を返す。
func (s State) String() string {
	switch s {
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	default:
		return "editing"
	}
}

// TextSanitizer は自由記述フィールドを保存前に無害化する。
type TextSanitizer interface {
	Sanitize(raw string) string
}

// SignOuter はIdentity Providerからのサインアウトを表す。
type SignOuter interface {
	SignOut(ctx context.Context) error
}

// Controller は「編集中」から「送信済み」への遷移を司る。
// ユーザー起点のsubmit 1回につき、ちょうど1回の書き込みを試行する。
// 自動リトライ・バックオフ・部分ペイロード復旧は行わない。
type Controller struct {
	mu    sync.Mutex
	state State

	gate      *Gate
	store     *Store
	dir       directory.Directory
	sanitizer TextSanitizer
	signOut   SignOuter
	nav       Navigator
}

// NewController はediting状態のControllerを生成する。
// sanitizerがnilの場合、自由記述は無加工で書き込まれる。
func NewController(gate *Gate, store *Store, dir directory.Directory, sanitizer TextSanitizer, signOut SignOuter, nav Navigator) *Controller {
	return &Controller{
		state:     StateEditing,
		gate:      gate,
		store:     store,
		dir:       dir,
		sanitizer: sanitizer,
		signOut:   signOut,
		nav:       nav,
	}
}

// State は現在のコントローラ状態を返す。
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit はユーザー起点の送信アクションを処理する。
//
// ガード: 認証済みIdentityが存在しない場合は書き込みを試行せず、
// サインイン入口へ遷移してErrNotAuthenticatedを返す。
// name/emailが空の場合も書き込みを試行しない（必須フィールドの前提条件）。
//
// submitting中の再呼び出しは2回目の書き込みを発行しない。
// 失敗時はediting状態へ戻り、下書きは送信前と完全に同一のまま保持される。
func (c *Controller) Submit(ctx context.Context) (directory.Ref, error) {
	c.mu.Lock()

	switch c.state {
	case StateSubmitted:
		c.mu.Unlock()
		return directory.Ref{}, ErrAlreadySubmitted
	case StateSubmitting:
		c.mu.Unlock()
		return directory.Ref{}, ErrSubmitInFlight
	}

	identity := c.gate.Identity()
	if identity == nil {
		c.mu.Unlock()
		c.nav.NavigateTo(PathSignIn)
		return directory.Ref{}, ErrNotAuthenticated
	}

	draft := c.store.Draft()
	if strings.TrimSpace(draft.Name) == "" {
		c.mu.Unlock()
		return directory.Ref{}, &RequiredFieldError{Field: model.FieldName}
	}
	if strings.TrimSpace(draft.Email) == "" {
		c.mu.Unlock()
		return directory.Ref{}, &RequiredFieldError{Field: model.FieldEmail}
	}

	// 書き込み中はsubmittingフラグで後続のsubmitを遮断する。
	// ロックは書き込みの間保持しない（解決を待つのはこの呼び出しだけでよい）。
	c.state = StateSubmitting
	c.mu.Unlock()

	ref, err := c.dir.Create(ctx, directory.CollectionFeedback, c.buildPayload(draft, *identity))

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		// 失敗はこの試行限りで完結する。下書きは無傷のまま残り、
		// ユーザーは再入力なしで再送信できる。
		c.state = StateEditing
		return directory.Ref{}, fmt.Errorf("failed to create feedback document: %w", err)
	}

	c.state = StateSubmitted
	c.store.consume()
	return ref, nil
}

// Reset はsubmitted状態からのログアウト操作を処理する。
// Identity Providerからサインアウトし、空の下書きを持つediting状態へ戻り、
// ランディングへ遷移する。
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateSubmitted {
		c.mu.Unlock()
		return ErrNotSubmitted
	}
	c.mu.Unlock()

	if c.signOut != nil {
		if err := c.signOut.SignOut(ctx); err != nil {
			return fmt.Errorf("failed to sign out: %w", err)
		}
	}

	c.mu.Lock()
	c.state = StateEditing
	c.mu.Unlock()

	c.store.reset()
	c.gate.clear()
	c.nav.NavigateTo(PathLanding)
	return nil
}

// buildPayload は送信ペイロードを構築する。
// 下書きのコピーに対してのみ無害化を適用し、Store内の下書きは変更しない。
// タイムスタンプはサーバー割り当てのセンチネルとして渡す。
func (c *Controller) buildPayload(draft model.FeedbackRecord, identity model.Identity) directory.Document {
	questions := draft.Questions
	improvements := draft.Improvements
	if c.sanitizer != nil {
		questions = c.sanitizer.Sanitize(questions)
		improvements = c.sanitizer.Sanitize(improvements)
	}

	return directory.Document{
		"name":            draft.Name,
		"email":           draft.Email,
		"company":         draft.Company,
		"role":            draft.Role,
		"experienceLevel": draft.ExperienceLevel,
		"eventVenue":      draft.EventVenue,
		"eventDate":       draft.EventDate,
		"ratings": map[string]int{
			model.RatingContentQuality:    draft.Ratings.ContentQuality,
			model.RatingSpeakerDelivery:   draft.Ratings.SpeakerDelivery,
			model.RatingTechnicalDepth:    draft.Ratings.TechnicalDepth,
			model.RatingEngagement:        draft.Ratings.Engagement,
			model.RatingOverallExperience: draft.Ratings.OverallExperience,
		},
		"questions":       questions,
		"improvements":    improvements,
		"userId":          identity.ID,
		"userDisplayName": identity.DisplayName,
		"userPhotoURL":    identity.PhotoURL,
		"submittedAt":     directory.ServerTimestamp,
		"createdAt":       directory.ServerTimestamp,
	}
}
