package user

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"elpa-backend/internal/shared/apperror"
)

const MinPasswordLength = 6

// ========================================
// REQUEST DTOs
// ========================================

type RegisterRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (r RegisterRequest) Validate() error {
	return toInputError(validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			validation.Required.Error("name is required"),
			validation.By(notBlank),
			validation.Length(1, 64),
		),
		validation.Field(&r.Email,
			validation.Required.Error("email is required"),
			validation.By(containsAt),
		),
		validation.Field(&r.Password,
			validation.Required.Error("password is required"),
			validation.RuneLength(MinPasswordLength, 0).Error("password must be at least 6 characters"),
		),
	))
}

type LoginRequest struct {
	Name     string `json:"name" form:"name"`
	Password string `json:"password" form:"password"`
}

func (r LoginRequest) Validate() error {
	return toInputError(validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required.Error("name is required")),
		validation.Field(&r.Password, validation.Required.Error("password is required")),
	))
}

// UpdateProfileRequest: field nil thì giữ nguyên
type UpdateProfileRequest struct {
	Email    *string `json:"email,omitempty" form:"email"`
	Password *string `json:"password,omitempty" form:"password"`
}

func (r UpdateProfileRequest) Validate() error {
	return toInputError(validation.ValidateStruct(&r,
		validation.Field(&r.Email,
			validation.When(r.Email != nil, validation.Required.Error("email is required"), validation.By(containsAt)),
		),
		validation.Field(&r.Password,
			validation.When(r.Password != nil,
				validation.Required.Error("password is required"),
				validation.RuneLength(MinPasswordLength, 0).Error("password must be at least 6 characters"),
			),
		),
	))
}

// ========================================
// RESPONSE DTOs
// ========================================

type UserResponse struct {
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Packages  []string  `json:"packages"`
	CreatedAt time.Time `json:"created_at"`
}

// CredentialResponse trả về sau register / login
type CredentialResponse struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

// ========================================
// HELPERS
// ========================================

// notBlank: name chỉ có khoảng trắng sẽ cho key rỗng
func notBlank(value interface{}) error {
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return errors.New("name is required")
	}
	return nil
}

// containsAt: kiểm tra email rất lỏng, chỉ cần có '@'
func containsAt(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	}
	if s != "" && !strings.Contains(s, "@") {
		return errors.New("email must contain @")
	}
	return nil
}

// toInputError chuyển validation.Errors thành InputError, thông báo theo thứ tự field
func toInputError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for _, field := range []string{"name", "email", "password"} {
			if fe, ok := verrs[field]; ok {
				return apperror.NewInputError("%s", fe.Error())
			}
		}
	}
	return apperror.NewInputError("%s", err.Error())
}
