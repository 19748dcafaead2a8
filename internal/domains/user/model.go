package user

import (
	"slices"
	"strings"
	"time"
)

// User là tài khoản có quyền upload / sở hữu package
type User struct {
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Digest    string    `json:"-"`
	Salt      string    `json:"-"`
	Token     string    `json:"-"` // bearer credential cho write operations
	Packages  []string  `json:"packages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NameToKey: user key là tên viết thường
func NameToKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (u *User) OwnsPackage(packageKey string) bool {
	return slices.Contains(u.Packages, packageKey)
}

// ToResponse ẩn credential fields
func (u *User) ToResponse() UserResponse {
	packages := u.Packages
	if packages == nil {
		packages = []string{}
	}
	return UserResponse{
		Name:      u.Name,
		Email:     u.Email,
		Packages:  packages,
		CreatedAt: u.CreatedAt,
	}
}
