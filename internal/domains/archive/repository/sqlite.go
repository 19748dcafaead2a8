package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"gorm.io/gorm"

	"elpa-backend/internal/domains/archive"
	"elpa-backend/internal/shared/utils"
)

// packageRecord / versionRecord là schema gorm cho embedded store
type packageRecord struct {
	Key           string                  `gorm:"column:package_key;primaryKey"`
	Name          string                  `gorm:"not null"`
	Owners        map[string]string       `gorm:"serializer:json"`
	Downloads     int64                   `gorm:"not null;default:0"`
	LatestVersion *archive.PackageVersion `gorm:"serializer:json"`
	CreatedAt     time.Time
}

func (packageRecord) TableName() string { return "packages" }

func (r *packageRecord) toDomain() *archive.Package {
	return &archive.Package{
		Key:           r.Key,
		Name:          r.Name,
		Owners:        r.Owners,
		Downloads:     r.Downloads,
		LatestVersion: r.LatestVersion,
		CreatedAt:     r.CreatedAt,
	}
}

type versionRecord struct {
	// ID tăng dần theo thứ tự insert
	ID          uint   `gorm:"primaryKey"`
	Key         string `gorm:"column:package_key;not null;uniqueIndex:idx_package_version"`
	Version     string `gorm:"not null;uniqueIndex:idx_package_version"`
	Name        string `gorm:"not null"`
	Description string `gorm:"not null;default:''"`
	Commentary  *string
	Headers     map[string]string    `gorm:"serializer:json"`
	Requires    []archive.Dependency `gorm:"serializer:json"`
	Kind        string               `gorm:"not null"`
	Downloads   int64                `gorm:"not null;default:0"`
	CreatedAt   time.Time            `gorm:"index"`
}

func (versionRecord) TableName() string { return "package_versions" }

func newVersionRecord(pv *archive.PackageVersion) *versionRecord {
	return &versionRecord{
		Key:         pv.Key,
		Version:     pv.Version.String(),
		Name:        pv.Name,
		Description: pv.Description,
		Commentary:  pv.Commentary,
		Headers:     pv.Headers,
		Requires:    pv.Requires,
		Kind:        string(pv.Kind),
		Downloads:   pv.Downloads,
	}
}

func (r *versionRecord) toDomain() (*archive.PackageVersion, error) {
	version, err := archive.ParseVersion(r.Version)
	if err != nil {
		return nil, fmt.Errorf("stored version of %s: %w", r.Key, err)
	}
	pv := &archive.PackageVersion{
		Key:         r.Key,
		Name:        r.Name,
		Description: r.Description,
		Commentary:  r.Commentary,
		Headers:     r.Headers,
		Requires:    r.Requires,
		Version:     version,
		Kind:        archive.Kind(r.Kind),
		Downloads:   r.Downloads,
		CreatedAt:   r.CreatedAt,
	}
	if pv.Headers == nil {
		pv.Headers = map[string]string{}
	}
	if pv.Requires == nil {
		pv.Requires = []archive.Dependency{}
	}
	return pv, nil
}

// MigrateSQLite tạo bảng cho embedded store
func MigrateSQLite(db *gorm.DB) error {
	return db.AutoMigrate(&packageRecord{}, &versionRecord{})
}

type sqliteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository implement archive.Repository bằng gorm. Dùng cho
// development và tests; db phải được mở với TranslateError.
func NewSQLiteRepository(db *gorm.DB) archive.Repository {
	return &sqliteRepository{db: db}
}

// ========================================
// PACKAGES
// ========================================

func (r *sqliteRepository) findPackage(tx *gorm.DB, key string) (*packageRecord, error) {
	var rec packageRecord
	if err := tx.First(&rec, "package_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, archive.ErrPackageNotFound
		}
		return nil, fmt.Errorf("find package %s: %w", key, err)
	}
	return &rec, nil
}

func (r *sqliteRepository) FindPackage(ctx context.Context, key string) (*archive.Package, error) {
	rec, err := r.findPackage(r.db.WithContext(ctx), key)
	if err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

func (r *sqliteRepository) CreatePackage(ctx context.Context, p *archive.Package) error {
	rec := packageRecord{Key: p.Key, Name: p.Name, Owners: p.Owners}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return archive.ErrPackageExists
		}
		return fmt.Errorf("create package %s: %w", p.Key, err)
	}
	p.CreatedAt = rec.CreatedAt
	return nil
}

// updatePackage đọc-sửa-ghi trong một transaction
func (r *sqliteRepository) updatePackage(ctx context.Context, key string, fn func(*packageRecord) bool) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := r.findPackage(tx, key)
		if err != nil {
			return err
		}
		if changed = fn(rec); !changed {
			return nil
		}
		return tx.Save(rec).Error
	})
	return changed, err
}

func (r *sqliteRepository) PromoteLatest(ctx context.Context, key string, pv *archive.PackageVersion) (bool, error) {
	return r.updatePackage(ctx, key, func(rec *packageRecord) bool {
		if rec.LatestVersion != nil && pv.Version.Less(rec.LatestVersion.Version) {
			return false
		}
		rec.LatestVersion = pv
		return true
	})
}

func (r *sqliteRepository) SetLatest(ctx context.Context, key string, pv *archive.PackageVersion) error {
	_, err := r.updatePackage(ctx, key, func(rec *packageRecord) bool {
		rec.LatestVersion = pv
		return true
	})
	return err
}

func (r *sqliteRepository) AddOwner(ctx context.Context, key, userKey, email string) error {
	_, err := r.updatePackage(ctx, key, func(rec *packageRecord) bool {
		if rec.Owners == nil {
			rec.Owners = map[string]string{}
		}
		rec.Owners[userKey] = email
		return true
	})
	return err
}

func (r *sqliteRepository) RemoveOwner(ctx context.Context, key, userKey string) error {
	_, err := r.updatePackage(ctx, key, func(rec *packageRecord) bool {
		delete(rec.Owners, userKey)
		return true
	})
	return err
}

func (r *sqliteRepository) DeletePackage(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("package_key = ?", key).Delete(&versionRecord{}).Error; err != nil {
			return fmt.Errorf("delete versions of %s: %w", key, err)
		}
		res := tx.Where("package_key = ?", key).Delete(&packageRecord{})
		if res.Error != nil {
			return fmt.Errorf("delete package %s: %w", key, res.Error)
		}
		if res.RowsAffected == 0 {
			return archive.ErrPackageNotFound
		}
		return nil
	})
}

// ========================================
// VERSIONS
// ========================================

func (r *sqliteRepository) InsertVersion(ctx context.Context, pv *archive.PackageVersion) error {
	rec := newVersionRecord(pv)
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return archive.ErrDuplicateVersion
		}
		return fmt.Errorf("insert version %s %s: %w", pv.Key, pv.Version, err)
	}
	pv.CreatedAt = rec.CreatedAt
	return nil
}

func (r *sqliteRepository) FindVersion(ctx context.Context, key string, version archive.Version) (*archive.PackageVersion, error) {
	var rec versionRecord
	err := r.db.WithContext(ctx).
		Where("package_key = ? AND version = ?", key, version.String()).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, archive.ErrVersionNotFound
		}
		return nil, fmt.Errorf("find version %s %s: %w", key, version, err)
	}
	return rec.toDomain()
}

func (r *sqliteRepository) ListVersions(ctx context.Context, key string) ([]archive.Version, error) {
	var raw []string
	err := r.db.WithContext(ctx).Model(&versionRecord{}).
		Where("package_key = ?", key).
		Pluck("version", &raw).Error
	if err != nil {
		return nil, fmt.Errorf("list versions of %s: %w", key, err)
	}

	versions := make([]archive.Version, 0, len(raw))
	for _, s := range raw {
		v, err := archive.ParseVersion(s)
		if err != nil {
			return nil, fmt.Errorf("stored version of %s: %w", key, err)
		}
		versions = append(versions, v)
	}
	return versions, nil
}

func (r *sqliteRepository) DeleteVersion(ctx context.Context, key string, version archive.Version) error {
	res := r.db.WithContext(ctx).
		Where("package_key = ? AND version = ?", key, version.String()).
		Delete(&versionRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete version %s %s: %w", key, version, res.Error)
	}
	if res.RowsAffected == 0 {
		return archive.ErrVersionNotFound
	}
	return nil
}

func (r *sqliteRepository) IncrementDownloads(ctx context.Context, key string, version archive.Version) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&versionRecord{}).
			Where("package_key = ? AND version = ?", key, version.String()).
			UpdateColumn("downloads", gorm.Expr("downloads + ?", 1)).Error
		if err != nil {
			return fmt.Errorf("increment version downloads: %w", err)
		}
		err = tx.Model(&packageRecord{}).
			Where("package_key = ?", key).
			UpdateColumn("downloads", gorm.Expr("downloads + ?", 1)).Error
		if err != nil {
			return fmt.Errorf("increment package downloads: %w", err)
		}
		return nil
	})
}

// ========================================
// STREAMS
// ========================================

const streamBatchSize = 100

var errStopStream = errors.New("stream stopped")

func (r *sqliteRepository) StreamPackages(ctx context.Context, filter archive.PackageFilter) iter.Seq2[*archive.Package, error] {
	return func(yield func(*archive.Package, error) bool) {
		q := r.db.WithContext(ctx).Model(&packageRecord{})
		if filter.KeyContains != "" {
			q = q.Where("package_key LIKE ? ESCAPE '\\'", "%"+utils.EscapeLike(strings.ToLower(filter.KeyContains))+"%")
		}
		if filter.Owner != "" {
			q = q.Where("EXISTS (SELECT 1 FROM json_each(packages.owners) WHERE json_each.key = ?)", filter.Owner)
		}

		var batch []packageRecord
		res := q.FindInBatches(&batch, streamBatchSize, func(_ *gorm.DB, _ int) error {
			for i := range batch {
				if !yield(batch[i].toDomain(), nil) {
					return errStopStream
				}
			}
			return nil
		})
		if res.Error != nil && !errors.Is(res.Error, errStopStream) {
			yield(nil, fmt.Errorf("stream packages: %w", res.Error))
		}
	}
}

func (r *sqliteRepository) StreamVersions(ctx context.Context, filter archive.VersionFilter) iter.Seq2[*archive.PackageVersion, error] {
	return func(yield func(*archive.PackageVersion, error) bool) {
		q := r.db.WithContext(ctx).Model(&versionRecord{})
		if filter.Key != "" {
			q = q.Where("package_key = ?", filter.Key)
		}
		if filter.Kind != "" {
			q = q.Where("kind = ?", string(filter.Kind))
		}
		if filter.CreatedAfter != nil {
			q = q.Where("created_at > ?", *filter.CreatedAfter)
		}

		var batch []versionRecord
		res := q.FindInBatches(&batch, streamBatchSize, func(_ *gorm.DB, _ int) error {
			for i := range batch {
				pv, err := batch[i].toDomain()
				if !yield(pv, err) || err != nil {
					return errStopStream
				}
			}
			return nil
		})
		if res.Error != nil && !errors.Is(res.Error, errStopStream) {
			yield(nil, fmt.Errorf("stream versions: %w", res.Error))
		}
	}
}
