package flow

import (
	"sync"
	"testing"

	"github.com/hitoshi/feedmatters/internal/model"
)

// --- モック定義 ---

type mockNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (m *mockNavigator) NavigateTo(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, path)
}

func (m *mockNavigator) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.paths) == 0 {
		return ""
	}
	return m.paths[len(m.paths)-1]
}

func (m *mockNavigator) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.paths)
}

// --- テスト ---

func TestGate_InitialStatusIsPending(t *testing.T) {
	g := NewGate(NewStore(), &mockNavigator{})

	if got := g.Status(); got != StatusPending {
		t.Errorf("Status() = %v, want pending", got)
	}
	if g.Identity() != nil {
		t.Error("expected nil identity before first notification")
	}
}

// サインインしたIdentityの属性で下書きが事前入力されること
func TestGate_Observe_SeedsDraftFromIdentity(t *testing.T) {
	store := NewStore()
	g := NewGate(store, &mockNavigator{})

	g.Observe(&model.Identity{
		ID:          "user-1",
		DisplayName: "Ada Lovelace",
		Email:       "ada@x.io",
	})

	if got := g.Status(); got != StatusAuthenticated {
		t.Errorf("Status() = %v, want authenticated", got)
	}

	draft := store.Draft()
	if draft.Name != "Ada Lovelace" {
		t.Errorf("Name = %q, want %q", draft.Name, "Ada Lovelace")
	}
	if draft.Email != "ada@x.io" {
		t.Errorf("Email = %q, want %q", draft.Email, "ada@x.io")
	}
	if draft.Ratings != (model.Ratings{}) {
		t.Errorf("Ratings = %+v, want all zero", draft.Ratings)
	}
}

// displayName/emailを持たないIdentityは空文字列として事前入力されること
func TestGate_Observe_MissingAttributesSeedEmptyStrings(t *testing.T) {
	store := NewStore()
	g := NewGate(store, &mockNavigator{})

	g.Observe(&model.Identity{ID: "user-1"})

	draft := store.Draft()
	if draft.Name != "" {
		t.Errorf("Name = %q, want empty string", draft.Name)
	}
	if draft.Email != "" {
		t.Errorf("Email = %q, want empty string", draft.Email)
	}
}

func TestGate_Observe_NilNavigatesToSignIn(t *testing.T) {
	nav := &mockNavigator{}
	g := NewGate(NewStore(), nav)

	g.Observe(nil)

	if got := g.Status(); got != StatusUnauthenticated {
		t.Errorf("Status() = %v, want unauthenticated", got)
	}
	if got := nav.last(); got != PathSignIn {
		t.Errorf("navigated to %q, want %q", got, PathSignIn)
	}
}

// 重複する「サインイン済み」通知が編集中の入力を上書きしないこと
func TestGate_Observe_DuplicateNotificationDoesNotClobberEdits(t *testing.T) {
	store := NewStore()
	g := NewGate(store, &mockNavigator{})
	identity := &model.Identity{ID: "user-1", DisplayName: "Ada Lovelace", Email: "ada@x.io"}

	g.Observe(identity)

	if err := store.SetField(model.FieldName, "A. Lovelace"); err != nil {
		t.Fatalf("SetField() error = %v", err)
	}

	// サイレントトークンリフレッシュ等による2回目の通知
	g.Observe(identity)

	if got := store.Draft().Name; got != "A. Lovelace" {
		t.Errorf("Name = %q, duplicate notification must not reseed", got)
	}
}

func TestGate_Identity_ReturnsCopy(t *testing.T) {
	g := NewGate(NewStore(), &mockNavigator{})
	g.Observe(&model.Identity{ID: "user-1", DisplayName: "Ada"})

	got := g.Identity()
	got.DisplayName = "tampered"

	if g.Identity().DisplayName != "Ada" {
		t.Error("gate identity mutated via returned copy")
	}
}

func TestGate_MountUnmount_SubscriptionLifecycle(t *testing.T) {
	store := NewStore()
	nav := &mockNavigator{}
	g := NewGate(store, nav)
	auth := NewBroadcaster()

	// 購読前にPublish済みの状態はMount時に即座に届く
	auth.Publish(&model.Identity{ID: "user-1", DisplayName: "Ada", Email: "ada@x.io"})
	g.Mount(auth)

	if got := g.Status(); got != StatusAuthenticated {
		t.Errorf("Status() = %v, want authenticated after mount", got)
	}

	// Unmount後の通知は届かない
	g.Unmount()
	auth.Publish(nil)

	if got := g.Status(); got != StatusAuthenticated {
		t.Errorf("Status() = %v, unmounted gate must not observe", got)
	}
	if nav.count() != 0 {
		t.Errorf("navigations = %d, want 0 after unmount", nav.count())
	}
}

func TestBroadcaster_PublishReachesSubscribers(t *testing.T) {
	b := NewBroadcaster()

	var got []*model.Identity
	unsub := b.Subscribe(func(id *model.Identity) {
		got = append(got, id)
	})

	b.Publish(&model.Identity{ID: "user-1"})
	b.Publish(nil)

	if len(got) != 2 {
		t.Fatalf("notifications = %d, want 2", len(got))
	}
	if got[0] == nil || got[0].ID != "user-1" {
		t.Errorf("first notification = %+v, want user-1", got[0])
	}
	if got[1] != nil {
		t.Errorf("second notification = %+v, want nil", got[1])
	}

	unsub()
	b.Publish(&model.Identity{ID: "user-2"})
	if len(got) != 2 {
		t.Errorf("notifications after unsubscribe = %d, want 2", len(got))
	}
}
