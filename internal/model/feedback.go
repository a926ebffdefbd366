package model

// 経験年数の選択肢。UIが提示する4区分のみを許可する。
const (
	ExperienceNewbie      = "0-1"
	ExperienceLearning    = "1-3"
	ExperienceExperienced = "3-5"
	ExperienceExpert      = "5+"
)

// ValidExperienceLevel はexperienceLevelとして受理できる値かを判定する。
// 空文字列は「未選択」を表す正当な値。
func ValidExperienceLevel(v string) bool {
	switch v {
	case "", ExperienceNewbie, ExperienceLearning, ExperienceExperienced, ExperienceExpert:
		return true
	}
	return false
}

// 評価カテゴリ名。
const (
	RatingContentQuality    = "contentQuality"
	RatingSpeakerDelivery   = "speakerDelivery"
	RatingTechnicalDepth    = "technicalDepth"
	RatingEngagement        = "engagement"
	RatingOverallExperience = "overallExperience"
)

// Ratings は5つの評価カテゴリを保持する。
// 各値は0〜5で、0は「未評価」を意味する。
// 未評価のまま送信することはビジネスルール上許容される。
type Ratings struct {
	ContentQuality    int
	SpeakerDelivery   int
	TechnicalDepth    int
	Engagement        int
	OverallExperience int
}

// フィードバックフォームのスカラーフィールド名。
const (
	FieldName            = "name"
	FieldEmail           = "email"
	FieldCompany         = "company"
	FieldRole            = "role"
	FieldExperienceLevel = "experienceLevel"
	FieldEventVenue      = "eventVenue"
	FieldEventDate       = "eventDate"
	FieldQuestions       = "questions"
	FieldImprovements    = "improvements"
)

// FeedbackRecord はフィードバックフォームの下書き1件分を表す。
// 送信されるまではForm State Storeが排他的に所有し、
// 送信成功後は値としてディレクトリへ引き渡される。
type FeedbackRecord struct {
	// 連絡先。NameとEmailは送信時の必須前提条件。
	Name    string
	Email   string
	Company string
	Role    string

	// 分類
	ExperienceLevel string

	// イベント情報
	EventVenue string
	EventDate  string

	// 評価
	Ratings Ratings

	// 自由記述
	Questions    string
	Improvements string
}
