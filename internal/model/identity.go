// Package model はドメインモデルを定義する。
package model

// Identity は外部IdPが認証した主体を表す。
// IdPの所有物であり、このシステムからは読み取り専用として扱う。
// DisplayName、Email、PhotoURLはIdP側で未設定の場合があり、
// その場合は空文字列となる（"null"という文字列には決してならない）。
type Identity struct {
	ID            string
	DisplayName   string
	Email         string
	PhotoURL      string
	EmailVerified bool
}
