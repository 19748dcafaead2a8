package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elpa-backend/internal/domains/archive"
	"elpa-backend/internal/infrastructure/database"
)

func setupRepo(t *testing.T) archive.Repository {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, MigrateSQLite(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewSQLiteRepository(db)
}

func seedPackage(t *testing.T, repo archive.Repository, name string, owners map[string]string) *archive.Package {
	t.Helper()
	p := &archive.Package{Key: archive.NameToKey(name), Name: name, Owners: owners}
	require.NoError(t, repo.CreatePackage(context.Background(), p))
	return p
}

func newVersion(name, version string) *archive.PackageVersion {
	pv := archive.NewPackageVersion(name, archive.MustParseVersion(version), archive.KindSingle)
	pv.Description = name + " description"
	pv.Headers["author"] = "Jane"
	pv.Requires = []archive.Dependency{{Name: "emacs", Version: archive.Version{24, 4}}}
	return pv
}

func TestSQLiteRepository_Packages(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)

	_, err := repo.FindPackage(ctx, "foo")
	assert.ErrorIs(t, err, archive.ErrPackageNotFound)

	seedPackage(t, repo, "Foo", map[string]string{"alice": "alice@example.com"})
	err = repo.CreatePackage(ctx, &archive.Package{Key: "foo", Name: "foo", Owners: map[string]string{}})
	assert.ErrorIs(t, err, archive.ErrPackageExists)

	require.NoError(t, repo.AddOwner(ctx, "foo", "bob", "bob@example.com"))
	require.NoError(t, repo.RemoveOwner(ctx, "foo", "alice"))

	p, err := repo.FindPackage(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, "Foo", p.Name)
	assert.Equal(t, map[string]string{"bob": "bob@example.com"}, p.Owners)
	assert.Nil(t, p.LatestVersion)
	assert.False(t, p.CreatedAt.IsZero())

	assert.ErrorIs(t, repo.AddOwner(ctx, "missing", "bob", "x"), archive.ErrPackageNotFound)
}

func TestSQLiteRepository_Versions(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	seedPackage(t, repo, "foo", map[string]string{"alice": "a@x"})

	require.NoError(t, repo.InsertVersion(ctx, newVersion("foo", "1.0")))
	require.NoError(t, repo.InsertVersion(ctx, newVersion("foo", "1.10")))
	require.NoError(t, repo.InsertVersion(ctx, newVersion("foo", "1.9")))

	err := repo.InsertVersion(ctx, newVersion("foo", "1.0"))
	assert.ErrorIs(t, err, archive.ErrDuplicateVersion)

	pv, err := repo.FindVersion(ctx, "foo", archive.Version{1, 10})
	require.NoError(t, err)
	assert.Equal(t, "foo description", pv.Description)
	assert.Equal(t, "Jane", pv.Headers["author"])
	assert.Equal(t, []archive.Dependency{{Name: "emacs", Version: archive.Version{24, 4}}}, pv.Requires)
	assert.Nil(t, pv.Commentary)

	_, err = repo.FindVersion(ctx, "foo", archive.Version{2})
	assert.ErrorIs(t, err, archive.ErrVersionNotFound)

	versions, err := repo.ListVersions(ctx, "foo")
	require.NoError(t, err)
	assert.ElementsMatch(t, []archive.Version{{1, 0}, {1, 10}, {1, 9}}, versions)
	assert.Equal(t, archive.Version{1, 10}, archive.MaxVersion(versions))

	require.NoError(t, repo.DeleteVersion(ctx, "foo", archive.Version{1, 9}))
	assert.ErrorIs(t, repo.DeleteVersion(ctx, "foo", archive.Version{1, 9}), archive.ErrVersionNotFound)
}

func TestSQLiteRepository_PromoteLatest(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	seedPackage(t, repo, "foo", map[string]string{"alice": "a@x"})

	promoted, err := repo.PromoteLatest(ctx, "foo", newVersion("foo", "1.2"))
	require.NoError(t, err)
	assert.True(t, promoted)

	promoted, err = repo.PromoteLatest(ctx, "foo", newVersion("foo", "1.1"))
	require.NoError(t, err)
	assert.False(t, promoted, "older version must not replace latest")

	promoted, err = repo.PromoteLatest(ctx, "foo", newVersion("foo", "1.10"))
	require.NoError(t, err)
	assert.True(t, promoted)

	p, err := repo.FindPackage(ctx, "foo")
	require.NoError(t, err)
	require.NotNil(t, p.LatestVersion)
	assert.Equal(t, archive.Version{1, 10}, p.LatestVersion.Version)

	require.NoError(t, repo.SetLatest(ctx, "foo", nil))
	p, err = repo.FindPackage(ctx, "foo")
	require.NoError(t, err)
	assert.Nil(t, p.LatestVersion)
}

func TestSQLiteRepository_Downloads(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	seedPackage(t, repo, "foo", map[string]string{"alice": "a@x"})
	require.NoError(t, repo.InsertVersion(ctx, newVersion("foo", "1.0")))

	require.NoError(t, repo.IncrementDownloads(ctx, "foo", archive.Version{1, 0}))
	require.NoError(t, repo.IncrementDownloads(ctx, "foo", archive.Version{1, 0}))

	pv, err := repo.FindVersion(ctx, "foo", archive.Version{1, 0})
	require.NoError(t, err)
	assert.EqualValues(t, 2, pv.Downloads)

	p, err := repo.FindPackage(ctx, "foo")
	require.NoError(t, err)
	assert.EqualValues(t, 2, p.Downloads)
}

func TestSQLiteRepository_DeletePackage(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	seedPackage(t, repo, "foo", map[string]string{"alice": "a@x"})
	require.NoError(t, repo.InsertVersion(ctx, newVersion("foo", "1.0")))

	require.NoError(t, repo.DeletePackage(ctx, "foo"))

	_, err := repo.FindPackage(ctx, "foo")
	assert.ErrorIs(t, err, archive.ErrPackageNotFound)
	versions, err := repo.ListVersions(ctx, "foo")
	require.NoError(t, err)
	assert.Empty(t, versions)

	assert.ErrorIs(t, repo.DeletePackage(ctx, "foo"), archive.ErrPackageNotFound)
}

func TestSQLiteRepository_Streams(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	seedPackage(t, repo, "helm", map[string]string{"alice": "a@x"})
	seedPackage(t, repo, "helm-ag", map[string]string{"bob": "b@x"})
	seedPackage(t, repo, "magit", map[string]string{"alice": "a@x", "bob": "b@x"})

	var keys []string
	for p, err := range repo.StreamPackages(ctx, archive.PackageFilter{KeyContains: "HELM"}) {
		require.NoError(t, err)
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"helm", "helm-ag"}, keys)

	keys = nil
	for p, err := range repo.StreamPackages(ctx, archive.PackageFilter{Owner: "bob"}) {
		require.NoError(t, err)
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"helm-ag", "magit"}, keys)

	// early break
	count := 0
	for range repo.StreamPackages(ctx, archive.PackageFilter{}) {
		count++
		break
	}
	assert.Equal(t, 1, count)

	before := time.Now().Add(-time.Hour)
	require.NoError(t, repo.InsertVersion(ctx, newVersion("helm", "1.0")))
	tarVersion := newVersion("helm", "2.0")
	tarVersion.Kind = archive.KindTar
	require.NoError(t, repo.InsertVersion(ctx, tarVersion))

	var versions []string
	for pv, err := range repo.StreamVersions(ctx, archive.VersionFilter{Key: "helm", CreatedAfter: &before}) {
		require.NoError(t, err)
		versions = append(versions, pv.Version.String())
	}
	assert.Equal(t, []string{"1.0", "2.0"}, versions, "insertion order")

	versions = nil
	for pv, err := range repo.StreamVersions(ctx, archive.VersionFilter{Kind: archive.KindTar}) {
		require.NoError(t, err)
		versions = append(versions, pv.Version.String())
	}
	assert.Equal(t, []string{"2.0"}, versions)
}
