// Package directory は外部マネージドドキュメントストアへの永続化ポートを定義する。
//
// フィードバックとユーザープロファイルはリレーショナルなスキーマを持たず、
// コレクション内のドキュメントとして書き込まれる。書き込みはfire-and-forgetで、
// このシステムはread-after-writeの検証を行わない。
package directory

import (
	"context"
	"errors"
)

// コレクション名。
const (
	CollectionFeedback = "feedback"
	CollectionUsers    = "users"
)

// Document はディレクトリに書き込む1ドキュメント分のフィールド集合。
type Document map[string]any

// Ref は作成されたドキュメントへの参照。
type Ref struct {
	Collection string
	ID         string
}

// ErrNotFound はドキュメントが存在しないことを表す。
var ErrNotFound = errors.New("directory: document not found")

// serverTimestamp はサーバー割り当てタイムスタンプのセンチネル型。
type serverTimestamp struct{}

// ServerTimestamp はドキュメントのフィールド値として指定すると、
// アダプタが書き込み時刻（UTC）に置換するセンチネル値。
// クライアント側の時計に依存せずタイムスタンプを割り当てるための仕組み。
var ServerTimestamp = serverTimestamp{}

// Directory はドキュメントディレクトリの操作インターフェース。
type Directory interface {
	// Create はコレクションに新規ドキュメントを1件アトミックに作成する。
	// IDはアダプタが割り当てる。部分的なドキュメントが残ることはない。
	Create(ctx context.Context, collection string, doc Document) (Ref, error)

	// Read は指定IDのドキュメントを取得する。
	// 存在しない場合はErrNotFoundを返す。
	Read(ctx context.Context, collection, id string) (Document, error)

	// UpsertMerge は指定IDのドキュメントへフィールドをマージ書き込みする。
	// ドキュメントが存在しない場合は作成する。既存フィールドのうち
	// docに含まれないものは変更されない（replaceではなくmerge）。
	UpsertMerge(ctx context.Context, collection, id string, doc Document) error
}
