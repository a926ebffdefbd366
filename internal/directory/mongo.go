package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoDirectory はMongoDBを使用したディレクトリ実装。
type MongoDirectory struct {
	db  *mongo.Database
	now func() time.Time
}

// NewMongoDirectory はMongoDirectoryを生成する。
func NewMongoDirectory(db *mongo.Database) *MongoDirectory {
	return &MongoDirectory{
		db:  db,
		now: time.Now,
	}
}

// Connect はMongoDBへ接続し、疎通確認を行ったうえでデータベースハンドルを返す。
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client, client.Database(database), nil
}

// Create はコレクションに新規ドキュメントを1件作成する。
func (d *MongoDirectory) Create(ctx context.Context, collection string, doc Document) (Ref, error) {
	id := bson.NewObjectID().Hex()

	fields := d.resolve(doc)
	fields["_id"] = id

	if _, err := d.db.Collection(collection).InsertOne(ctx, fields); err != nil {
		return Ref{}, fmt.Errorf("failed to insert document into %s: %w", collection, err)
	}

	return Ref{Collection: collection, ID: id}, nil
}

// Read は指定IDのドキュメントを取得する。存在しない場合はErrNotFoundを返す。
func (d *MongoDirectory) Read(ctx context.Context, collection, id string) (Document, error) {
	var doc Document
	err := d.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// UpsertMerge は指定IDのドキュメントへフィールドをマージ書き込みする。
// $setによる部分更新のため、docに含まれないフィールドは維持される。
func (d *MongoDirectory) UpsertMerge(ctx context.Context, collection, id string, doc Document) error {
	fields := d.resolve(doc)

	_, err := d.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": fields},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document %s/%s: %w", collection, id, err)
	}
	return nil
}

// resolve はServerTimestampセンチネルを現在時刻（UTC）に置換したコピーを返す。
// 入力のdocは変更しない。
func (d *MongoDirectory) resolve(doc Document) bson.M {
	now := d.now().UTC()
	fields := make(bson.M, len(doc))
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
var _ Directory = (*MongoDirectory)(nil)
