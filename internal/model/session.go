package model

import "time"

// Session はユーザーのログインセッションを表す。
// サインイン時のIdentityスナップショットを保持し、
// 後続リクエストでディレクトリを読み直さずに主体を復元できるようにする。
type Session struct {
	ID        string
	Identity  Identity
	ExpiresAt time.Time
	CreatedAt time.Time
}
