package flow

import (
	"sync"

	"github.com/hitoshi/feedmatters/internal/model"
)

// Status はSession Gateの3状態を表す。
// ページはこの値でローディング表示・フォーム表示・（遷移による）非表示を選択する。
type Status int

const (
	// StatusPending は認証通知をまだ受け取っていない状態。
	StatusPending Status = iota
	// StatusAuthenticated は認証済みの主体が存在する状態。
	StatusAuthenticated
	// StatusUnauthenticated はサインアウト済み（または未サインイン）の状態。
	StatusUnauthenticated
)

// String はステータスの表示名を返す。
func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "pending"
	}
}

// Unsubscribe は認証変更ストリームの購読を解除する。
type Unsubscribe func()

// IdentityNotifier は認証状態の変更ストリームを表す。
// 購読者には現在のIdentity（未認証ならnil）が通知される。
// プロバイダは1セッション中に複数回「サインイン済み」を通知しうる。
type IdentityNotifier interface {
	Subscribe(onChange func(*model.Identity)) Unsubscribe
}

// Gate はフィードバックフォームを認証済みセッションだけに到達させ、
// 既知のIdentity属性をユーザーに再入力させないためのセッションゲート。
type Gate struct {
	mu       sync.Mutex
	status   Status
	identity *model.Identity
	unsub    Unsubscribe

	store *Store
	nav   Navigator
}

// NewGate はpending状態のGateを生成する。
func NewGate(store *Store, nav Navigator) *Gate {
	return &Gate{
		status: StatusPending,
		store:  store,
		nav:    nav,
	}
}

// Mount は認証変更ストリームの購読を開始する。
func (g *Gate) Mount(notifier IdentityNotifier) {
	g.mu.Lock()
	if g.unsub != nil {
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()

	unsub := notifier.Subscribe(g.Observe)

	g.mu.Lock()
	g.unsub = unsub
	g.mu.Unlock()
}

// Unmount は購読を解除する。リスナーを残さない。
func (g *Gate) Unmount() {
	g.mu.Lock()
	unsub := g.unsub
	g.unsub = nil
	g.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Observe は認証変更通知のコールバック。
//
// Identityが存在する場合: アクティブな主体として記録し、下書きのname/emailを
// 事前入力する。事前入力はページライフタイム中1回だけ作用し、編集開始後の
// 重複通知がユーザー入力を上書きすることはない（Store.Seedが保証する）。
//
// nilの場合: 未認証としてサインイン入口へ遷移する。
func (g *Gate) Observe(identity *model.Identity) {
	if identity == nil {
		g.mu.Lock()
		g.status = StatusUnauthenticated
		g.identity = nil
		g.mu.Unlock()

		g.nav.NavigateTo(PathSignIn)
		return
	}

	subject := *identity

	g.mu.Lock()
	g.status = StatusAuthenticated
	g.identity = &subject
	g.mu.Unlock()

	g.store.Seed(subject)
}

// Status は現在のゲート状態を返す。
func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Identity はアクティブなセッション主体のコピーを返す。未認証ならnil。
func (g *Gate) Identity() *model.Identity {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.identity == nil {
		return nil
	}
	subject := *g.identity
	return &subject
}

// clear はreset時にゲートを未認証へ戻す。遷移は要求しない。
func (g *Gate) clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status = StatusUnauthenticated
	g.identity = nil
}
