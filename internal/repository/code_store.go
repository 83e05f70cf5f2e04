package repository

import (
	"context"
	"time"
)

// 用途別のキー空間
type CodeKind string

const (
	CodeKindEmailVerify   CodeKind = "verify"
	CodeKindPasswordReset CodeKind = "reset"
)

// メール宛てのワンタイムコード置き場（TTL付き）。
// プロセス内mapではなく外部ストアに置くので再起動・複数台でも引ける。
type CodeStore interface {
	Set(ctx context.Context, kind CodeKind, email string, code string, ttl time.Duration) error
	// 見つからなければ("", ErrNotFound)
	Get(ctx context.Context, kind CodeKind, email string) (string, error)
	Delete(ctx context.Context, kind CodeKind, email string) error
}
