package archive

import (
	"context"
	"iter"

	"elpa-backend/internal/domains/user"
)

// Service định nghĩa business logic layer contract
type Service interface {
	// Queries
	LoadPackage(ctx context.Context, key string) (*Package, error)
	LoadPackageVersion(ctx context.Context, key string, version Version) (*Package, *PackageVersion, error)
	LoadPackageData(ctx context.Context, name string, version Version, kind Kind) ([]byte, *PackageVersion, error)

	// Writes
	SavePackageVersion(ctx context.Context, pv *PackageVersion, data []byte, u *user.User) (*Package, error)
	Upload(ctx context.Context, data []byte, kind Kind, u *user.User) (*Package, error)
	RemovePackageVersion(ctx context.Context, key string, version Version) error
	RemovePackage(ctx context.Context, key string) error

	// Ownership
	AuthorizeOwner(ctx context.Context, key string, u *user.User) (*Package, error)
	AddPackageOwner(ctx context.Context, key string, acting *user.User, newOwner string) (*Package, error)
	RemovePackageOwner(ctx context.Context, key string, acting *user.User, owner string) (*Package, error)

	// Streams
	PackageStream(ctx context.Context, filter PackageFilter) iter.Seq2[*Package, error]
	PackageVersionStream(ctx context.Context, filter VersionFilter) iter.Seq2[*PackageVersion, error]
	SearchPackages(ctx context.Context, query string) iter.Seq2[*Package, error]
	ArchiveContents(ctx context.Context) (string, error)

	// Maintenance (chạy từ worker)
	RecordDownload(ctx context.Context, key string, version Version) error
	RepairOwnership(ctx context.Context) (*RepairReport, error)
}
