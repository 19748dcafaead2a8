package service

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"elpa-backend/internal/domains/archive"
	"elpa-backend/internal/domains/user"
	"elpa-backend/internal/shared/apperror"
	"elpa-backend/pkg/sexp"
)

// số blob delete chạy song song trong RemovePackage
const blobDeleteConcurrency = 4

type archiveService struct {
	repo      archive.Repository
	blobs     archive.BlobStore
	users     user.Repository
	extractor archive.Extractor
	tracker   archive.DownloadTracker
}

// NewService: tracker nil thì counter được ghi đồng bộ qua repo
func NewService(
	repo archive.Repository,
	blobs archive.BlobStore,
	users user.Repository,
	extractor archive.Extractor,
	tracker archive.DownloadTracker,
) archive.Service {
	if tracker == nil {
		tracker = NewDirectTracker(repo)
	}
	return &archiveService{
		repo:      repo,
		blobs:     blobs,
		users:     users,
		extractor: extractor,
		tracker:   tracker,
	}
}

// ========================================
// QUERIES
// ========================================

func (s *archiveService) LoadPackage(ctx context.Context, key string) (*archive.Package, error) {
	pkg, err := s.repo.FindPackage(ctx, key)
	if err != nil {
		if errors.Is(err, archive.ErrPackageNotFound) {
			return nil, packageAbsent(key)
		}
		return nil, err
	}
	return pkg, nil
}

// LoadPackageVersion trả về cả hai hoặc không gì cả
func (s *archiveService) LoadPackageVersion(ctx context.Context, key string, version archive.Version) (*archive.Package, *archive.PackageVersion, error) {
	pkg, err := s.LoadPackage(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	pv, err := s.repo.FindVersion(ctx, key, version)
	if err != nil {
		if errors.Is(err, archive.ErrVersionNotFound) {
			return nil, nil, s.versionAbsent(ctx, key, version)
		}
		return nil, nil, err
	}
	return pkg, pv, nil
}

func (s *archiveService) LoadPackageData(ctx context.Context, name string, version archive.Version, kind archive.Kind) ([]byte, *archive.PackageVersion, error) {
	key := archive.NameToKey(name)
	pv, err := s.repo.FindVersion(ctx, key, version)
	if err != nil {
		if errors.Is(err, archive.ErrVersionNotFound) {
			return nil, nil, s.versionAbsent(ctx, key, version)
		}
		return nil, nil, err
	}
	if pv.Kind != kind {
		return nil, nil, apperror.NewLoadError(apperror.ReasonKindMismatch,
			"Package %s %s is a %s package, not a %s package", pv.Name, pv.Version, pv.Kind, kind)
	}

	data, err := s.blobs.Read(ctx, pv.BlobKey())
	if err != nil {
		return nil, nil, fmt.Errorf("read blob %s: %w", pv.BlobKey(), err)
	}

	// counter là best-effort, không làm fail request
	if err := s.tracker.TrackDownload(ctx, key, version); err != nil {
		log.Warn().Err(err).
			Str("package", key).
			Str("version", version.String()).
			Msg("failed to track download")
	}
	return data, pv, nil
}

func packageAbsent(key string) error {
	return apperror.NewLoadError(apperror.ReasonPackageAbsent, "Package %s does not exist", key)
}

// versionAbsent phân biệt package không tồn tại với version không tồn tại
func (s *archiveService) versionAbsent(ctx context.Context, key string, version archive.Version) error {
	pkg, err := s.repo.FindPackage(ctx, key)
	if err != nil {
		if errors.Is(err, archive.ErrPackageNotFound) {
			return packageAbsent(key)
		}
		return err
	}

	versions, err := s.repo.ListVersions(ctx, key)
	if err != nil {
		return err
	}
	latest := archive.MaxVersion(versions)
	if latest == nil {
		return apperror.NewLoadError(apperror.ReasonVersionAbsent,
			"Package %s has no version %s and no versions are available", pkg.Name, version)
	}
	return apperror.NewLoadError(apperror.ReasonVersionAbsent,
		"Package %s has no version %s; the most recent version is %s", pkg.Name, version, latest)
}

// ========================================
// WRITES
// ========================================

func (s *archiveService) Upload(ctx context.Context, data []byte, kind archive.Kind, u *user.User) (*archive.Package, error) {
	pv, err := s.extractor.Extract(ctx, data, kind)
	if err != nil {
		return nil, err
	}
	return s.SavePackageVersion(ctx, pv, data, u)
}

func (s *archiveService) SavePackageVersion(ctx context.Context, pv *archive.PackageVersion, data []byte, u *user.User) (*archive.Package, error) {
	if pv.Key == "" {
		pv.Key = archive.NameToKey(pv.Name)
	}

	if _, err := s.ensurePackage(ctx, pv, u); err != nil {
		return nil, err
	}

	if err := s.repo.InsertVersion(ctx, pv); err != nil {
		if errors.Is(err, archive.ErrDuplicateVersion) {
			return nil, apperror.NewInputError("%s %s: version already exists", pv.Name, pv.Version)
		}
		return nil, err
	}

	if err := s.blobs.Write(ctx, pv.BlobKey(), data); err != nil {
		// bỏ version row để upload lại được
		if delErr := s.repo.DeleteVersion(ctx, pv.Key, pv.Version); delErr != nil {
			log.Error().Err(delErr).
				Str("package", pv.Key).
				Str("version", pv.Version.String()).
				Msg("failed to remove version row after blob write failure")
		}
		return nil, fmt.Errorf("write blob %s: %w", pv.BlobKey(), err)
	}

	promoted, err := s.repo.PromoteLatest(ctx, pv.Key, pv)
	if err != nil {
		return nil, err
	}
	if !promoted {
		log.Info().
			Str("package", pv.Key).
			Str("version", pv.Version.String()).
			Msg("uploaded version is older than latest, latest unchanged")
	}

	pkg, err := s.repo.FindPackage(ctx, pv.Key)
	if err != nil {
		return nil, err
	}
	pkg.Uploaded = pv

	log.Info().
		Str("package", pv.Key).
		Str("version", pv.Version.String()).
		Str("user", u.Key).
		Msg("package version saved")
	return pkg, nil
}

// ensurePackage tạo package mới cho uploader hoặc kiểm tra ownership
func (s *archiveService) ensurePackage(ctx context.Context, pv *archive.PackageVersion, u *user.User) (*archive.Package, error) {
	pkg, err := s.repo.FindPackage(ctx, pv.Key)
	if err == nil {
		if !pkg.HasOwner(u.Key) {
			return nil, apperror.NewPermissionsError(u.Key, pkg.Name)
		}
		// lần bootstrap trước có thể chưa ghi được phía user
		if !u.OwnsPackage(pkg.Key) {
			if err := s.linkUser(ctx, u, pkg.Key); err != nil {
				return nil, err
			}
		}
		return pkg, nil
	}
	if !errors.Is(err, archive.ErrPackageNotFound) {
		return nil, err
	}

	pkg = &archive.Package{
		Key:    pv.Key,
		Name:   pv.Name,
		Owners: map[string]string{u.Key: u.Email},
	}
	if err := s.repo.CreatePackage(ctx, pkg); err != nil {
		if errors.Is(err, archive.ErrPackageExists) {
			// upload khác vừa tạo package
			return s.ensurePackage(ctx, pv, u)
		}
		return nil, err
	}

	if err := s.linkUser(ctx, u, pkg.Key); err != nil {
		return nil, err
	}
	log.Info().Str("package", pkg.Key).Str("user", u.Key).Msg("package created")
	return pkg, nil
}

func (s *archiveService) linkUser(ctx context.Context, u *user.User, packageKey string) error {
	if err := s.users.AddPackage(ctx, u.Key, packageKey); err != nil {
		return fmt.Errorf("add package %s to user %s: %w", packageKey, u.Key, err)
	}
	u.Packages = append(u.Packages, packageKey)
	return nil
}

func (s *archiveService) RemovePackageVersion(ctx context.Context, key string, version archive.Version) error {
	pv, err := s.repo.FindVersion(ctx, key, version)
	if err != nil {
		if errors.Is(err, archive.ErrVersionNotFound) {
			return s.versionAbsent(ctx, key, version)
		}
		return err
	}

	if err := s.blobs.Delete(ctx, pv.BlobKey()); err != nil {
		return fmt.Errorf("delete blob %s: %w", pv.BlobKey(), err)
	}
	if err := s.repo.DeleteVersion(ctx, key, version); err != nil {
		return err
	}

	remaining, err := s.repo.ListVersions(ctx, key)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		return s.deletePackageRecord(ctx, key)
	}

	latest, err := s.repo.FindVersion(ctx, key, archive.MaxVersion(remaining))
	if err != nil {
		return err
	}
	if err := s.repo.SetLatest(ctx, key, latest); err != nil {
		return err
	}

	log.Info().Str("package", key).Str("version", version.String()).Msg("package version removed")
	return nil
}

// RemovePackage: blob delete là best-effort, chỉ log
func (s *archiveService) RemovePackage(ctx context.Context, key string) error {
	if _, err := s.LoadPackage(ctx, key); err != nil {
		return err
	}

	var blobKeys []string
	for pv, err := range s.repo.StreamVersions(ctx, archive.VersionFilter{Key: key}) {
		if err != nil {
			return err
		}
		blobKeys = append(blobKeys, pv.BlobKey())
	}

	var g errgroup.Group
	g.SetLimit(blobDeleteConcurrency)
	for _, blobKey := range blobKeys {
		g.Go(func() error {
			if err := s.blobs.Delete(ctx, blobKey); err != nil {
				log.Warn().Err(err).Str("package", key).Str("blob_key", blobKey).Msg("failed to delete blob")
			}
			return nil
		})
	}
	_ = g.Wait()

	return s.deletePackageRecord(ctx, key)
}

// deletePackageRecord xoá package rows rồi gỡ key khỏi owners (best-effort)
func (s *archiveService) deletePackageRecord(ctx context.Context, key string) error {
	pkg, err := s.repo.FindPackage(ctx, key)
	if err != nil {
		return err
	}
	if err := s.repo.DeletePackage(ctx, key); err != nil {
		return err
	}
	for ownerKey := range pkg.Owners {
		if err := s.users.RemovePackage(ctx, ownerKey, key); err != nil && !errors.Is(err, user.ErrUserNotFound) {
			log.Warn().Err(err).Str("package", key).Str("user", ownerKey).Msg("failed to unlink removed package")
		}
	}

	log.Info().Str("package", key).Msg("package removed")
	return nil
}

// ========================================
// OWNERSHIP
// ========================================

func (s *archiveService) AuthorizeOwner(ctx context.Context, key string, u *user.User) (*archive.Package, error) {
	pkg, err := s.LoadPackage(ctx, key)
	if err != nil {
		return nil, err
	}
	if !pkg.HasOwner(u.Key) {
		return nil, apperror.NewPermissionsError(u.Key, pkg.Name)
	}
	return pkg, nil
}

// AddPackageOwner ghi cả hai phía, không rollback; lỗi từng phía được gộp
func (s *archiveService) AddPackageOwner(ctx context.Context, key string, acting *user.User, newOwner string) (*archive.Package, error) {
	if _, err := s.AuthorizeOwner(ctx, key, acting); err != nil {
		return nil, err
	}

	owner, err := s.users.FindByKey(ctx, user.NameToKey(newOwner))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, apperror.NewInputError("User %s does not exist", newOwner)
		}
		return nil, err
	}

	if err := errors.Join(
		s.repo.AddOwner(ctx, key, owner.Key, owner.Email),
		s.users.AddPackage(ctx, owner.Key, key),
	); err != nil {
		return nil, fmt.Errorf("add owner %s to %s: %w", owner.Key, key, err)
	}

	log.Info().Str("package", key).Str("user", owner.Key).Str("by", acting.Key).Msg("owner added")
	return s.repo.FindPackage(ctx, key)
}

func (s *archiveService) RemovePackageOwner(ctx context.Context, key string, acting *user.User, owner string) (*archive.Package, error) {
	pkg, err := s.AuthorizeOwner(ctx, key, acting)
	if err != nil {
		return nil, err
	}

	ownerKey := user.NameToKey(owner)
	if !pkg.HasOwner(ownerKey) {
		return nil, apperror.NewInputError("User %s doesn't own package %s", owner, pkg.Name)
	}
	if len(pkg.Owners) == 1 {
		return nil, apperror.NewInputError("Cannot remove the last owner of package %s", pkg.Name)
	}

	userErr := s.users.RemovePackage(ctx, ownerKey, key)
	if errors.Is(userErr, user.ErrUserNotFound) {
		userErr = nil
	}
	if err := errors.Join(s.repo.RemoveOwner(ctx, key, ownerKey), userErr); err != nil {
		return nil, fmt.Errorf("remove owner %s from %s: %w", ownerKey, key, err)
	}

	log.Info().Str("package", key).Str("user", ownerKey).Str("by", acting.Key).Msg("owner removed")
	return s.repo.FindPackage(ctx, key)
}

// ========================================
// STREAMS
// ========================================

func (s *archiveService) PackageStream(ctx context.Context, filter archive.PackageFilter) iter.Seq2[*archive.Package, error] {
	return s.repo.StreamPackages(ctx, filter)
}

func (s *archiveService) PackageVersionStream(ctx context.Context, filter archive.VersionFilter) iter.Seq2[*archive.PackageVersion, error] {
	return s.repo.StreamVersions(ctx, filter)
}

// SearchPackages: substring trên key, không ranking
func (s *archiveService) SearchPackages(ctx context.Context, query string) iter.Seq2[*archive.Package, error] {
	return s.repo.StreamPackages(ctx, archive.PackageFilter{KeyContains: archive.NameToKey(query)})
}

// ArchiveContents render (1 (name . [...]) ...) cho package manager
func (s *archiveService) ArchiveContents(ctx context.Context) (string, error) {
	items := []sexp.Value{sexp.Int(1)}
	for pkg, err := range s.repo.StreamPackages(ctx, archive.PackageFilter{}) {
		if err != nil {
			return "", err
		}
		if pkg.LatestVersion == nil {
			continue
		}
		items = append(items, pkg.LatestVersion.ArchiveEntry())
	}
	return sexp.Serialize(sexp.List(items...)), nil
}

// ========================================
// MAINTENANCE
// ========================================

func (s *archiveService) RecordDownload(ctx context.Context, key string, version archive.Version) error {
	return s.repo.IncrementDownloads(ctx, key, version)
}
