package flow

import (
	"sync"

	"github.com/hitoshi/feedmatters/internal/model"
)

// Broadcaster はIdentityNotifierのインプロセス実装。
// Publishされた最新の認証状態を保持し、購読開始時にも即座に通知する
// （プロバイダの「購読直後に現在状態が届く」挙動を再現する）。
// 同一の「サインイン済み」状態が繰り返しPublishされることは正常であり、
// 重複通知への耐性は購読者側（Gate/Store）が持つ。
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(*model.Identity)
	latest *model.Identity
	seen   bool
}

// NewBroadcaster はBroadcasterを生成する。
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[int]func(*model.Identity)),
	}
}

// Subscribe は購読を開始する。既にPublish済みの状態があれば即座に通知する。
func (b *Broadcaster) Subscribe(onChange func(*model.Identity)) Unsubscribe {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = onChange
	deliver := b.seen
	latest := b.latest
	b.mu.Unlock()

	if deliver {
		onChange(latest)
	}

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish は現在の認証状態（未認証ならnil）を全購読者へ通知する。
func (b *Broadcaster) Publish(identity *model.Identity) {
	b.mu.Lock()
	b.latest = identity
	b.seen = true
	targets := make([]func(*model.Identity), 0, len(b.subs))
	for _, fn := range b.subs {
		targets = append(targets, fn)
	}
	b.mu.Unlock()

	for _, fn := range targets {
		fn(identity)
	}
}

// compile-time interface check
var _ IdentityNotifier = (*Broadcaster)(nil)
