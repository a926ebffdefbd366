package directory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDirectory はインメモリのディレクトリ実装。
// テストおよびローカル開発で外部ストアなしに動作させるために使用する。
type MemoryDirectory struct {
	mu          sync.Mutex
	collections map[string]map[string]Document
	now         func() time.Time
}

// NewMemoryDirectory はMemoryDirectoryを生成する。
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		collections: make(map[string]map[string]Document),
		now:         time.Now,
	}
}

// SetClock はタイムスタンプ割り当てに使用する時計を差し替える。テスト用。
func (d *MemoryDirectory) SetClock(now func() time.Time) {
	d.now = now
}

// Create はコレクションに新規ドキュメントを1件作成する。
func (d *MemoryDirectory) Create(_ context.Context, collection string, doc Document) (Ref, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := uuid.New().String()
	d.put(collection, id, d.resolve(doc))

	return Ref{Collection: collection, ID: id}, nil
}

// Read は指定IDのドキュメントを取得する。存在しない場合はErrNotFoundを返す。
func (d *MemoryDirectory) Read(_ context.Context, collection, id string) (Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	coll, ok := d.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	doc, ok := coll[id]
	if !ok {
		return nil, ErrNotFound
	}

	// 呼び出し側の変更が格納済みドキュメントへ波及しないようコピーを返す
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out, nil
}

// UpsertMerge は指定IDのドキュメントへフィールドをマージ書き込みする。
func (d *MemoryDirectory) UpsertMerge(_ context.Context, collection, id string, doc Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	existing, ok := d.collections[collection][id]
	if !ok {
		d.put(collection, id, d.resolve(doc))
		return nil
	}

	for k, v := range d.resolve(doc) {
		existing[k] = v
	}
	return nil
}

// Documents は指定コレクションの全ドキュメントのコピーを返す。テスト検証用。
func (d *MemoryDirectory) Documents(collection string) map[string]Document {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]Document, len(d.collections[collection]))
	for id, doc := range d.collections[collection] {
		copied := make(Document, len(doc))
		for k, v := range doc {
			copied[k] = v
		}
		out[id] = copied
	}
	return out
}

// put はコレクションを必要に応じて初期化しつつドキュメントを格納する。
func (d *MemoryDirectory) put(collection, id string, doc Document) {
	if d.collections[collection] == nil {
		d.collections[collection] = make(map[string]Document)
	}
	d.collections[collection][id] = doc
}

// resolve はServerTimestampセンチネルを現在時刻（UTC）に置換したコピーを返す。
func (d *MemoryDirectory) resolve(doc Document) Document {
	now := d.now().UTC()
	fields := make(Document, len(doc))
	for k, v := range doc {
		if _, ok := v.(serverTimestamp); ok {
			fields[k] = now
			continue
		}
		fields[k] = v
	}
	return fields
}

// compile-time interface check
var _ Directory = (*MemoryDirectory)(nil)
