package service

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/argon2"

	"elpa-backend/internal/domains/user"
	"elpa-backend/internal/shared/apperror"
)

const (
	tokenBytes    = 32 // 256-bit token và salt
	passwordBytes = 9  // mật khẩu tạm khi reset, 12 ký tự

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

type userService struct {
	repo     user.Repository
	notifier user.Notifier
	tokens   user.TokenSource
}

// NewUserService: tokens nil thì dùng crypto/rand
func NewUserService(repo user.Repository, notifier user.Notifier, tokens user.TokenSource) user.Service {
	if tokens == nil {
		tokens = NewRandomSource()
	}
	return &userService{repo: repo, notifier: notifier, tokens: tokens}
}

// digest = argon2id(password, salt)
func digest(password, salt string) string {
	key := argon2.IDKey([]byte(password), []byte(salt), argonTime, argonMemory, argonThreads, argonKeyLen)
	return base64.StdEncoding.EncodeToString(key)
}

func matches(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ========================================
// REGISTRATION & CREDENTIALS
// ========================================

func (s *userService) Register(ctx context.Context, req user.RegisterRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	salt, err := s.tokens.RandomString(tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	token, err := s.tokens.RandomString(tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	u := &user.User{
		Key:      user.NameToKey(req.Name),
		Name:     req.Name,
		Email:    req.Email,
		Salt:     salt,
		Digest:   digest(req.Password, salt),
		Token:    token,
		Packages: []string{},
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrUserAlreadyExists) {
			return nil, apperror.NewInputError("User %s already exists", req.Name)
		}
		return nil, err
	}

	log.Info().Str("user", u.Key).Msg("user registered")
	return u, nil
}

func (s *userService) LoadUser(ctx context.Context, name, password string) (*user.User, error) {
	u, err := s.repo.FindByKey(ctx, user.NameToKey(name))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !matches(digest(password, u.Salt), u.Digest) {
		return nil, nil
	}
	return u, nil
}

// LoadUserWithToken không phân biệt unknown user và sai token
func (s *userService) LoadUserWithToken(ctx context.Context, name, token string) (*user.User, error) {
	invalid := apperror.NewInputError("invalid user name or token")
	if name == "" || token == "" {
		return nil, invalid
	}

	u, err := s.repo.FindByKey(ctx, user.NameToKey(name))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, invalid
		}
		return nil, err
	}
	if !matches(token, u.Token) {
		return nil, invalid
	}
	return u, nil
}

func (s *userService) GetUser(ctx context.Context, name string) (*user.User, error) {
	u, err := s.repo.FindByKey(ctx, user.NameToKey(name))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, apperror.NewInputError("User %s does not exist", name)
		}
		return nil, err
	}
	return u, nil
}

// ========================================
// PASSWORD & PROFILE
// ========================================

// ResetPassword lưu digest mới trước, sau đó mới gửi mật khẩu cho notifier
func (s *userService) ResetPassword(ctx context.Context, name string) error {
	u, err := s.GetUser(ctx, name)
	if err != nil {
		return err
	}

	password, err := s.tokens.RandomString(passwordBytes)
	if err != nil {
		return fmt.Errorf("generate password: %w", err)
	}
	if err := s.setPassword(u, password); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return fmt.Errorf("save new password: %w", err)
	}

	if err := s.notifier.NotifyPasswordReset(ctx, u, password); err != nil {
		return fmt.Errorf("notify password reset: %w", err)
	}
	log.Info().Str("user", u.Key).Msg("password reset")
	return nil
}

func (s *userService) UpdateProfile(ctx context.Context, u *user.User, req user.UpdateProfileRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	updated := *u
	if req.Email != nil {
		updated.Email = *req.Email
	}
	if req.Password != nil {
		if err := s.setPassword(&updated, *req.Password); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &updated, nil
}

// setPassword sinh salt mới cho mỗi lần đổi mật khẩu
func (s *userService) setPassword(u *user.User, password string) error {
	salt, err := s.tokens.RandomString(tokenBytes)
	if err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	u.Salt = salt
	u.Digest = digest(password, salt)
	return nil
}
