package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"

	"gorm.io/gorm"

	"elpa-backend/internal/domains/user"
)

type userRecord struct {
	Key       string   `gorm:"column:user_key;primaryKey"`
	Name      string   `gorm:"not null"`
	Email     string   `gorm:"not null"`
	Digest    string   `gorm:"not null"`
	Salt      string   `gorm:"not null"`
	Token     string   `gorm:"not null"`
	Packages  []string `gorm:"serializer:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (userRecord) TableName() string { return "users" }

func (r *userRecord) toDomain() *user.User {
	u := &user.User{
		Key:       r.Key,
		Name:      r.Name,
		Email:     r.Email,
		Digest:    r.Digest,
		Salt:      r.Salt,
		Token:     r.Token,
		Packages:  r.Packages,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if u.Packages == nil {
		u.Packages = []string{}
	}
	return u
}

// MigrateSQLite tạo bảng users
func MigrateSQLite(db *gorm.DB) error {
	return db.AutoMigrate(&userRecord{})
}

type sqliteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository: embedded store cho development và tests
func NewSQLiteRepository(db *gorm.DB) user.Repository {
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) Create(ctx context.Context, u *user.User) error {
	rec := userRecord{
		Key:      u.Key,
		Name:     u.Name,
		Email:    u.Email,
		Digest:   u.Digest,
		Salt:     u.Salt,
		Token:    u.Token,
		Packages: u.Packages,
	}
	if rec.Packages == nil {
		rec.Packages = []string{}
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return user.ErrUserAlreadyExists
		}
		return fmt.Errorf("create user %s: %w", u.Key, err)
	}
	u.Packages = rec.Packages
	u.CreatedAt = rec.CreatedAt
	u.UpdatedAt = rec.UpdatedAt
	return nil
}

func (r *sqliteRepository) find(tx *gorm.DB, key string) (*userRecord, error) {
	var rec userRecord
	if err := tx.First(&rec, "user_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user %s: %w", key, err)
	}
	return &rec, nil
}

func (r *sqliteRepository) FindByKey(ctx context.Context, key string) (*user.User, error) {
	rec, err := r.find(r.db.WithContext(ctx), key)
	if err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

func (r *sqliteRepository) Update(ctx context.Context, u *user.User) error {
	return r.modify(ctx, u.Key, func(rec *userRecord) {
		rec.Email = u.Email
		rec.Digest = u.Digest
		rec.Salt = u.Salt
		rec.Token = u.Token
	})
}

func (r *sqliteRepository) AddPackage(ctx context.Context, userKey, packageKey string) error {
	return r.modify(ctx, userKey, func(rec *userRecord) {
		if !slices.Contains(rec.Packages, packageKey) {
			rec.Packages = append(rec.Packages, packageKey)
		}
	})
}

func (r *sqliteRepository) RemovePackage(ctx context.Context, userKey, packageKey string) error {
	return r.modify(ctx, userKey, func(rec *userRecord) {
		rec.Packages = slices.DeleteFunc(rec.Packages, func(k string) bool { return k == packageKey })
	})
}

// modify đọc-sửa-ghi trong transaction
func (r *sqliteRepository) modify(ctx context.Context, key string, fn func(*userRecord)) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := r.find(tx, key)
		if err != nil {
			return err
		}
		fn(rec)
		if rec.Packages == nil {
			rec.Packages = []string{}
		}
		return tx.Save(rec).Error
	})
}

var errStopStream = errors.New("stream stopped")

func (r *sqliteRepository) StreamUsers(ctx context.Context) iter.Seq2[*user.User, error] {
	return func(yield func(*user.User, error) bool) {
		var batch []userRecord
		res := r.db.WithContext(ctx).Model(&userRecord{}).
			FindInBatches(&batch, 100, func(_ *gorm.DB, _ int) error {
				for i := range batch {
					if !yield(batch[i].toDomain(), nil) {
						return errStopStream
					}
				}
				return nil
			})
		if res.Error != nil && !errors.Is(res.Error, errStopStream) {
			yield(nil, fmt.Errorf("stream users: %w", res.Error))
		}
	}
}
