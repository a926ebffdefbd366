package handler

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/feedmatters/internal/events"
	"github.com/hitoshi/feedmatters/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// テンプレート関数。safeHTMLはbluemondayで無害化済みの断片にのみ使う。
var templateFuncs = template.FuncMap{
	"safeHTML": func(s string) template.HTML { return template.HTML(s) },
}

// templates はページ名ごとに独立したテンプレートセットを保持する。
// 各ページがcontent/title/headerを再定義するため、セットは共有できない。
type templates struct {
	pages map[string]*template.Template
}

// parseTemplates は埋め込みテンプレートを全ページ分パースする。
// 起動時に1回だけ呼ぶ。パース失敗は設定ミスなのでエラーで返す。
func parseTemplates() (*templates, error) {
	names := []string{"landing", "signup", "feedback", "submitted"}
	pages := make(map[string]*template.Template, len(names))

	for _, name := range names {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(
			templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = t
	}

	return &templates{pages: pages}, nil
}

// render はページを描画する。描画失敗はこの時点でヘッダー送信前なら500を返す。
func (t *templates) render(w http.ResponseWriter, status int, page string, data any) {
	tpl, ok := t.pages[page]
	if !ok {
		slog.Error("unknown template page", slog.String("page", page))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
	}
}

// landingData はランディングページの描画データ。
type landingData struct {
	Announcements []events.Announcement
}

// signupData はサインインページの描画データ。
type signupData struct {
	SignedIn bool
	Error    *model.APIError
}

// feedbackData はフィードバックフォーム・送信完了ページの描画データ。
type feedbackData struct {
	Identity    model.Identity
	Draft       model.FeedbackRecord
	RatingScale []int
	CSRFToken   string
	Error       *model.APIError
}
