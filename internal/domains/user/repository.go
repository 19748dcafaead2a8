package user

import (
	"context"
	"iter"
)

// Repository là record store cho User
type Repository interface {
	// Create trả về ErrUserAlreadyExists nếu key đã có
	Create(ctx context.Context, u *User) error

	// FindByKey trả về ErrUserNotFound nếu không tìm thấy
	FindByKey(ctx context.Context, key string) (*User, error)

	// Update ghi email, digest, salt, token
	Update(ctx context.Context, u *User) error

	// AddPackage / RemovePackage idempotent trên tập packages
	AddPackage(ctx context.Context, userKey, packageKey string) error
	RemovePackage(ctx context.Context, userKey, packageKey string) error

	// StreamUsers duyệt toàn bộ users theo key
	StreamUsers(ctx context.Context) iter.Seq2[*User, error]
}
