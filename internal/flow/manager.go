package flow

import (
	"context"
	"sync"

	"github.com/hitoshi/feedmatters/internal/directory"
)

// RouteRecorder はNavigatorのHTTP向け実装。
// フローが要求した遷移先を記録し、ハンドラがConsumeで取り出して
// リダイレクトレスポンスに変換する。
type RouteRecorder struct {
	mu   sync.Mutex
	path string
	set  bool
}

// NewRouteRecorder はRouteRecorderを生成する。
func NewRouteRecorder() *RouteRecorder {
	return &RouteRecorder{}
}

// NavigateTo は遷移先パスを記録する。後勝ち。
func (r *RouteRecorder) NavigateTo(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.path = path
	r.set = true
}

// Consume は記録された遷移先を取り出してクリアする。
func (r *RouteRecorder) Consume() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	path, set := r.path, r.set
	r.path, r.set = "", false
	return path, set
}

// compile-time interface check
var _ Navigator = (*RouteRecorder)(nil)

// SignOutFunc はセッションIDに紐づくサインアウト処理。
type SignOutFunc func(ctx context.Context, sessionID string) error

// sessionSignOuter はSignOutFuncを特定セッションに束縛したSignOuter。
type sessionSignOuter struct {
	fn        SignOutFunc
	sessionID string
}

func (s *sessionSignOuter) SignOut(ctx context.Context) error {
	if s.fn == nil {
		return nil
	}
	return s.fn(ctx, s.sessionID)
}

// Flow は1ページセッション分のGate・Store・Controllerの集合体。
// FeedbackRecordの下書きはこのインスタンスが排他的に所有する。
type Flow struct {
	Store      *Store
	Gate       *Gate
	Controller *Controller
	Nav        *RouteRecorder
	Auth       *Broadcaster
}

// Close は認証通知の購読を解除する。リスナーを残さない。
func (f *Flow) Close() {
	f.Gate.Unmount()
}

// Manager はセッションIDごとにFlowインスタンスを1つ管理する。
// 同一セッションの複数リクエストは同じFlow（同じ下書き・同じ送信ガード）を共有する。
type Manager struct {
	mu    sync.Mutex
	flows map[string]*Flow

	dir       directory.Directory
	sanitizer TextSanitizer
	signOut   SignOutFunc
}

// NewManager はManagerを生成する。
func NewManager(dir directory.Directory, sanitizer TextSanitizer, signOut SignOutFunc) *Manager {
	return &Manager{
		flows:     make(map[string]*Flow),
		dir:       dir,
		sanitizer: sanitizer,
		signOut:   signOut,
	}
}

// Get はセッションIDに対応するFlowを返す。存在しなければ生成する。
func (m *Manager) Get(sessionID string) *Flow {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f, ok := m.flows[sessionID]; ok {
		return f
	}

	f := m.newFlow(sessionID)
	m.flows[sessionID] = f
	return f
}

// Remove はセッションのFlowを破棄する。ログアウト・セッション失効時に呼ぶ。
func (m *Manager) Remove(sessionID string) {
	m.mu.Lock()
	f, ok := m.flows[sessionID]
	delete(m.flows, sessionID)
	m.mu.Unlock()

	if ok {
		f.Close()
	}
}

// Len は管理中のFlow数を返す。テスト検証用。
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.flows)
}

// newFlow は1セッション分のフロー一式を組み立てる。
func (m *Manager) newFlow(sessionID string) *Flow {
	nav := NewRouteRecorder()
	auth := NewBroadcaster()
	store := NewStore()
	gate := NewGate(store, nav)
	ctrl := NewController(gate, store, m.dir, m.sanitizer, &sessionSignOuter{fn: m.signOut, sessionID: sessionID}, nav)

	gate.Mount(auth)

	return &Flow{
		Store:      store,
		Gate:       gate,
		Controller: ctrl,
		Nav:        nav,
		Auth:       auth,
	}
}
