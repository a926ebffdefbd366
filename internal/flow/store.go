package flow

import (
	"sync"

	"github.com/hitoshi/feedmatters/internal/model"
)

// Store はフォームセッションごとに1つのFeedbackRecord下書きを保持する。
// フィールド単位・評価単位の更新のみを提供し、暗黙のバリデーションは行わない
// （バリデーションは送信時の前提条件としてControllerが行う）。
//
// 更新は常に単一キーの置換であり、他のフィールドへ波及しない。
// Undo・履歴・フィールド間の派生状態は持たない。
type Store struct {
	mu       sync.Mutex
	draft    model.FeedbackRecord
	seeded   bool
	dirty    bool
	consumed bool
}

// NewStore は空の下書きを持つStoreを生成する。
func NewStore() *Store {
	return &Store{}
}

// Seed は認証済みIdentityの既知属性で連絡先フィールドを事前入力する。
// ページライフタイム中に最初の1回だけ作用し、ユーザーが編集を始めた後の
// 重複通知では既存入力を上書きしない。
// IdPが属性を持たない場合は空文字列が入る（"null"にはならない）。
func (s *Store) Seed(identity model.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seeded || s.dirty || s.consumed {
		return
	}

	s.draft.Name = identity.DisplayName
	s.draft.Email = identity.Email
	s.seeded = true
}

// SetField はスカラーフィールドをちょうど1つ置換する。他のフィールドは不変。
// 送信済みの下書きに対してはErrDraftConsumedを返す。
func (s *Store) SetField(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.consumed {
		return ErrDraftConsumed
	}

	switch name {
	case model.FieldName:
		s.draft.Name = value
	case model.FieldEmail:
		s.draft.Email = value
	case model.FieldCompany:
		s.draft.Company = value
	case model.FieldRole:
		s.draft.Role = value
	case model.FieldExperienceLevel:
		if !model.ValidExperienceLevel(value) {
			return ErrInvalidExperienceLevel
		}
		s.draft.ExperienceLevel = value
	case model.FieldEventVenue:
		s.draft.EventVenue = value
	case model.FieldEventDate:
		s.draft.EventDate = value
	case model.FieldQuestions:
		s.draft.Questions = value
	case model.FieldImprovements:
		s.draft.Improvements = value
	default:
		return ErrUnknownField
	}

	s.dirty = true
	return nil
}

// SetRating は5つの評価フィールドのうち指定カテゴリだけを置換する。
// UIが提示するのは1〜5のみで、0（未評価）をこの操作で書き戻すことはできない。
func (s *Store) SetRating(category string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.consumed {
		return ErrDraftConsumed
	}
	if value < 1 || value > 5 {
		return ErrInvalidRating
	}

	switch category {
	case model.RatingContentQuality:
		s.draft.Ratings.ContentQuality = value
	case model.RatingSpeakerDelivery:
		s.draft.Ratings.SpeakerDelivery = value
	case model.RatingTechnicalDepth:
		s.draft.Ratings.TechnicalDepth = value
	case model.RatingEngagement:
		s.draft.Ratings.Engagement = value
	case model.RatingOverallExperience:
		s.draft.Ratings.OverallExperience = value
	default:
		return ErrUnknownRating
	}

	s.dirty = true
	return nil
}

// Draft は下書きの値コピーを返す。
func (s *Store) Draft() model.FeedbackRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Consumed は下書きが送信済みかを返す。
func (s *Store) Consumed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumed
}

// consume は送信成功した下書きを論理的に消費済みにする。
// 以後のSetField/SetRatingはすべて拒否される。
func (s *Store) consume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumed = true
}

// reset は空の下書きを持つ初期状態へ戻す。resetトリガー（ログアウト）専用。
func (s *Store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = model.FeedbackRecord{}
	s.seeded = false
	s.dirty = false
	s.consumed = false
}
