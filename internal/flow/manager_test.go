package flow

import (
	"context"
	"testing"

	"github.com/hitoshi/feedmatters/internal/directory"
	"github.com/hitoshi/feedmatters/internal/model"
)

func TestManager_Get_SameSessionSharesFlow(t *testing.T) {
	m := NewManager(directory.NewMemoryDirectory(), nil, nil)

	f1 := m.Get("sess-1")
	f2 := m.Get("sess-1")
	other := m.Get("sess-2")

	if f1 != f2 {
		t.Error("same session should share one flow instance")
	}
	if f1 == other {
		t.Error("different sessions must not share a flow")
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestManager_Remove_UnmountsGate(t *testing.T) {
	m := NewManager(directory.NewMemoryDirectory(), nil, nil)

	f := m.Get("sess-1")
	f.Auth.Publish(&model.Identity{ID: "user-1", DisplayName: "Ada", Email: "ada@x.io"})

	m.Remove("sess-1")

	// 破棄後の通知はゲートに届かない
	f.Auth.Publish(nil)
	if got := f.Gate.Status(); got != StatusAuthenticated {
		t.Errorf("Status() = %v, removed flow must not observe", got)
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}

// Resetがセッションに束縛されたサインアウトを呼ぶこと
func TestManager_Flow_ResetSignsOutBoundSession(t *testing.T) {
	dir := directory.NewMemoryDirectory()

	var signedOut []string
	m := NewManager(dir, nil, func(_ context.Context, sessionID string) error {
		signedOut = append(signedOut, sessionID)
		return nil
	})

	f := m.Get("sess-1")
	f.Auth.Publish(&model.Identity{ID: "user-1", DisplayName: "Ada Lovelace", Email: "ada@x.io"})

	if _, err := f.Controller.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := f.Controller.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	if len(signedOut) != 1 || signedOut[0] != "sess-1" {
		t.Errorf("signedOut = %v, want [sess-1]", signedOut)
	}

	// ディレクトリには1件だけ書き込まれていること
	if docs := dir.Documents(directory.CollectionFeedback); len(docs) != 1 {
		t.Errorf("feedback documents = %d, want 1", len(docs))
	}
}

func TestRouteRecorder_ConsumeClears(t *testing.T) {
	r := NewRouteRecorder()

	if _, ok := r.Consume(); ok {
		t.Error("expected no recorded navigation initially")
	}

	r.NavigateTo(PathSignIn)
	r.NavigateTo(PathLanding) // 後勝ち

	path, ok := r.Consume()
	if !ok || path != PathLanding {
		t.Errorf("Consume() = %q, %v, want %q, true", path, ok, PathLanding)
	}

	if _, ok := r.Consume(); ok {
		t.Error("Consume() should clear the recorded navigation")
	}
}
