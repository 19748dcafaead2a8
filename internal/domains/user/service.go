package user

import "context"

// Service là User/Credential store
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)

	// LoadUser trả về (nil, nil) khi sai tên hoặc mật khẩu
	LoadUser(ctx context.Context, name, password string) (*User, error)

	// LoadUserWithToken trả về InputError "invalid" cho mọi mismatch
	LoadUserWithToken(ctx context.Context, name, token string) (*User, error)

	// GetUser không kiểm tra credential; dùng cho lookup owner
	GetUser(ctx context.Context, name string) (*User, error)

	ResetPassword(ctx context.Context, name string) error
	UpdateProfile(ctx context.Context, u *User, req UpdateProfileRequest) (*User, error)
}

// Notifier gửi mật khẩu mới tới email của user
type Notifier interface {
	NotifyPasswordReset(ctx context.Context, u *User, password string) error
}

// TokenSource sinh chuỗi ngẫu nhiên cho token, salt, mật khẩu tạm
type TokenSource interface {
	RandomString(nBytes int) (string, error)
}
