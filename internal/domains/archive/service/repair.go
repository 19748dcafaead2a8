package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"elpa-backend/internal/domains/archive"
)

type ownerLink struct {
	user, pkg string
}

func (l ownerLink) String() string { return l.user + ":" + l.pkg }

// RepairOwnership đồng bộ User.packages theo Package.owners.
// Package.owners là nguồn đúng; thu thập hết rồi mới ghi.
func (s *archiveService) RepairOwnership(ctx context.Context) (*archive.RepairReport, error) {
	report := &archive.RepairReport{LinksAdded: []string{}, LinksRemoved: []string{}}

	owned := make(map[string]map[string]bool)
	for pkg, err := range s.repo.StreamPackages(ctx, archive.PackageFilter{}) {
		if err != nil {
			return nil, err
		}
		report.PackagesScanned++
		for ownerKey := range pkg.Owners {
			if owned[ownerKey] == nil {
				owned[ownerKey] = make(map[string]bool)
			}
			owned[ownerKey][pkg.Key] = true
		}
	}

	var toAdd, toRemove []ownerLink
	seen := make(map[string]bool)
	for u, err := range s.users.StreamUsers(ctx) {
		if err != nil {
			return nil, err
		}
		report.UsersScanned++
		seen[u.Key] = true

		want := owned[u.Key]
		for _, pkgKey := range u.Packages {
			if !want[pkgKey] {
				toRemove = append(toRemove, ownerLink{u.Key, pkgKey})
			}
		}
		for pkgKey := range want {
			if !u.OwnsPackage(pkgKey) {
				toAdd = append(toAdd, ownerLink{u.Key, pkgKey})
			}
		}
	}

	for ownerKey := range owned {
		if !seen[ownerKey] {
			log.Warn().Str("user", ownerKey).Msg("package owner has no user record")
		}
	}

	var errs []error
	for _, l := range toAdd {
		if err := s.users.AddPackage(ctx, l.user, l.pkg); err != nil {
			errs = append(errs, fmt.Errorf("link %s: %w", l, err))
			continue
		}
		report.LinksAdded = append(report.LinksAdded, l.String())
	}
	for _, l := range toRemove {
		// snapshot có thể cũ: upload mới có thể vừa tạo package
		stillOwned, err := s.ownsNow(ctx, l)
		if err != nil {
			errs = append(errs, fmt.Errorf("unlink %s: %w", l, err))
			continue
		}
		if stillOwned {
			log.Info().Str("link", l.String()).Msg("owner link became valid during repair, kept")
			continue
		}
		if err := s.users.RemovePackage(ctx, l.user, l.pkg); err != nil {
			errs = append(errs, fmt.Errorf("unlink %s: %w", l, err))
			continue
		}
		report.LinksRemoved = append(report.LinksRemoved, l.String())
	}
	slices.Sort(report.LinksAdded)
	slices.Sort(report.LinksRemoved)

	log.Info().
		Int("packages", report.PackagesScanned).
		Int("users", report.UsersScanned).
		Int("added", len(report.LinksAdded)).
		Int("removed", len(report.LinksRemoved)).
		Msg("ownership repair finished")
	return report, errors.Join(errs...)
}

func (s *archiveService) ownsNow(ctx context.Context, l ownerLink) (bool, error) {
	pkg, err := s.repo.FindPackage(ctx, l.pkg)
	if errors.Is(err, archive.ErrPackageNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return pkg.HasOwner(l.user), nil
}
