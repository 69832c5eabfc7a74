package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
)

// セッションが無い/期限切れ
var ErrSessionNotFound = errors.New("session not found")

// トークンとユーザーは必ずペアで保存・削除する。
// プロセス再起動後もストア側に残る（起動時のhydrate相当）。
type SessionStore interface {
	Save(ctx context.Context, token string, user model.User) error
	Find(ctx context.Context, token string) (model.User, error)
	Delete(ctx context.Context, token string) error
}
