package archive

import (
	"context"
	"iter"
	"time"
)

// PackageFilter - điều kiện lọc cho PackageStream
type PackageFilter struct {
	KeyContains string // substring, case-insensitive
	Owner       string // user key
}

// VersionFilter - điều kiện lọc cho PackageVersionStream
type VersionFilter struct {
	Key          string
	Kind         Kind
	CreatedAfter *time.Time
}

// Repository là structured record store cho Package và PackageVersion.
// Uniqueness (key, version) do storage layer enforce.
type Repository interface {
	// ========================================
	// PACKAGES
	// ========================================

	// FindPackage returns ErrPackageNotFound nếu key chưa tồn tại
	FindPackage(ctx context.Context, key string) (*Package, error)

	// CreatePackage returns ErrPackageExists nếu key đã tồn tại
	CreatePackage(ctx context.Context, pkg *Package) error

	// PromoteLatest đặt latest_version = pv nếu pv.Version >= latest hiện tại.
	// Trả về false khi latest hiện tại mới hơn.
	PromoteLatest(ctx context.Context, key string, pv *PackageVersion) (bool, error)

	// SetLatest ghi đè latest_version không điều kiện
	SetLatest(ctx context.Context, key string, pv *PackageVersion) error

	AddOwner(ctx context.Context, key, userKey, email string) error
	RemoveOwner(ctx context.Context, key, userKey string) error

	// DeletePackage xoá package và mọi version row trong một transaction
	DeletePackage(ctx context.Context, key string) error

	// ========================================
	// VERSIONS
	// ========================================

	// InsertVersion returns ErrDuplicateVersion nếu (key, version) đã tồn tại
	InsertVersion(ctx context.Context, pv *PackageVersion) error

	// FindVersion returns ErrVersionNotFound
	FindVersion(ctx context.Context, key string, version Version) (*PackageVersion, error)

	// ListVersions trả về mọi version number của key (không theo thứ tự)
	ListVersions(ctx context.Context, key string) ([]Version, error)

	DeleteVersion(ctx context.Context, key string, version Version) error

	// IncrementDownloads tăng counter của version và package
	IncrementDownloads(ctx context.Context, key string, version Version) error

	// ========================================
	// STREAMS
	// ========================================

	StreamPackages(ctx context.Context, filter PackageFilter) iter.Seq2[*Package, error]
	StreamVersions(ctx context.Context, filter VersionFilter) iter.Seq2[*PackageVersion, error]
}

// BlobStore lưu raw bytes của package theo blob key
type BlobStore interface {
	// Read returns ErrBlobNotFound nếu key không tồn tại
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// DownloadTracker nhận sự kiện download. Implementation có thể enqueue
// (asynq) hoặc ghi trực tiếp; lỗi chỉ được log ở caller.
type DownloadTracker interface {
	TrackDownload(ctx context.Context, key string, version Version) error
}

// Extractor recover metadata từ raw bytes theo kind
type Extractor interface {
	Extract(ctx context.Context, data []byte, kind Kind) (*PackageVersion, error)
}
