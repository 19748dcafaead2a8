package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"elpa-backend/internal/domains/archive"
	"elpa-backend/internal/shared/utils"
	"elpa-backend/pkg/cache"
	"elpa-backend/pkg/database"
)

const defaultPackageCacheTTL = 10 * time.Minute

// postgresRepository implement archive.Repository trên PostgreSQL.
// Package aggregate được cache theo pattern cache-aside.
type postgresRepository struct {
	pool     *pgxpool.Pool
	cache    cache.Cache
	cacheTTL time.Duration
}

func NewPostgresRepository(pool *pgxpool.Pool, c cache.Cache, ttl time.Duration) archive.Repository {
	if c == nil {
		c = cache.Noop{}
	}
	if ttl <= 0 {
		ttl = defaultPackageCacheTTL
	}
	return &postgresRepository{pool: pool, cache: c, cacheTTL: ttl}
}

// scanner là phần chung của pgx.Row và pgx.Rows
type scanner interface {
	Scan(dest ...any) error
}

func packageCacheKey(key string) string { return "package:" + key }

// invalidate xoá cache sau mọi thay đổi trên package; lỗi chỉ log
func (r *postgresRepository) invalidate(ctx context.Context, key string) {
	if err := r.cache.Delete(ctx, packageCacheKey(key)); err != nil {
		log.Warn().Err(err).Str("package", key).Msg("failed to invalidate package cache")
	}
}

// ========================================
// PACKAGES
// ========================================

const packageColumns = `package_key, name, owners, downloads, latest_version, created_at`

func scanPackage(row scanner) (*archive.Package, error) {
	var (
		p      archive.Package
		owners []byte
		latest []byte
	)
	if err := row.Scan(&p.Key, &p.Name, &owners, &p.Downloads, &latest, &p.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(owners, &p.Owners); err != nil {
		return nil, fmt.Errorf("decode owners of %s: %w", p.Key, err)
	}
	if len(latest) > 0 {
		if err := json.Unmarshal(latest, &p.LatestVersion); err != nil {
			return nil, fmt.Errorf("decode latest version of %s: %w", p.Key, err)
		}
	}
	return &p, nil
}

func (r *postgresRepository) FindPackage(ctx context.Context, key string) (*archive.Package, error) {
	var cached archive.Package
	if found, err := r.cache.Get(ctx, packageCacheKey(key), &cached); err == nil && found {
		return &cached, nil
	}

	query := `SELECT ` + packageColumns + ` FROM packages WHERE package_key = $1`
	p, err := scanPackage(r.pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, archive.ErrPackageNotFound
		}
		return nil, fmt.Errorf("find package %s: %w", key, err)
	}

	_ = r.cache.Set(ctx, packageCacheKey(key), p, r.cacheTTL)
	return p, nil
}

func (r *postgresRepository) CreatePackage(ctx context.Context, p *archive.Package) error {
	owners, err := json.Marshal(p.Owners)
	if err != nil {
		return fmt.Errorf("encode owners: %w", err)
	}

	query := `
		INSERT INTO packages (package_key, name, owners)
		VALUES ($1, $2, $3::jsonb)
		RETURNING created_at
	`
	err = r.pool.QueryRow(ctx, query, p.Key, p.Name, string(owners)).Scan(&p.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return archive.ErrPackageExists
		}
		return fmt.Errorf("create package %s: %w", p.Key, err)
	}
	r.invalidate(ctx, p.Key)
	return nil
}

// PromoteLatest dựa vào so sánh INTEGER[] của PostgreSQL: từng phần tử,
// mảng ngắn hơn là prefix thì nhỏ hơn, khớp với archive.Version.Compare.
func (r *postgresRepository) PromoteLatest(ctx context.Context, key string, pv *archive.PackageVersion) (bool, error) {
	latest, err := json.Marshal(pv)
	if err != nil {
		return false, fmt.Errorf("encode latest version: %w", err)
	}

	query := `
		UPDATE packages
		SET latest_version = $2::jsonb, latest_number = $3
		WHERE package_key = $1 AND (latest_number IS NULL OR latest_number <= $3)
	`
	tag, err := r.pool.Exec(ctx, query, key, string(latest), toInt32s(pv.Version))
	if err != nil {
		return false, fmt.Errorf("promote latest version of %s: %w", key, err)
	}
	r.invalidate(ctx, key)
	return tag.RowsAffected() == 1, nil
}

func (r *postgresRepository) SetLatest(ctx context.Context, key string, pv *archive.PackageVersion) error {
	var (
		latest any
		number any
	)
	if pv != nil {
		data, err := json.Marshal(pv)
		if err != nil {
			return fmt.Errorf("encode latest version: %w", err)
		}
		latest, number = string(data), toInt32s(pv.Version)
	}

	query := `UPDATE packages SET latest_version = $2::jsonb, latest_number = $3 WHERE package_key = $1`
	tag, err := r.pool.Exec(ctx, query, key, latest, number)
	if err != nil {
		return fmt.Errorf("set latest version of %s: %w", key, err)
	}
	r.invalidate(ctx, key)
	if tag.RowsAffected() == 0 {
		return archive.ErrPackageNotFound
	}
	return nil
}

func (r *postgresRepository) AddOwner(ctx context.Context, key, userKey, email string) error {
	query := `UPDATE packages SET owners = owners || jsonb_build_object($2::text, $3::text) WHERE package_key = $1`
	tag, err := r.pool.Exec(ctx, query, key, userKey, email)
	if err != nil {
		return fmt.Errorf("add owner %s to %s: %w", userKey, key, err)
	}
	r.invalidate(ctx, key)
	if tag.RowsAffected() == 0 {
		return archive.ErrPackageNotFound
	}
	return nil
}

func (r *postgresRepository) RemoveOwner(ctx context.Context, key, userKey string) error {
	query := `UPDATE packages SET owners = owners - $2::text WHERE package_key = $1`
	tag, err := r.pool.Exec(ctx, query, key, userKey)
	if err != nil {
		return fmt.Errorf("remove owner %s from %s: %w", userKey, key, err)
	}
	r.invalidate(ctx, key)
	if tag.RowsAffected() == 0 {
		return archive.ErrPackageNotFound
	}
	return nil
}

func (r *postgresRepository) DeletePackage(ctx context.Context, key string) error {
	err := database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM package_versions WHERE package_key = $1`, key); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM packages WHERE package_key = $1`, key)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return archive.ErrPackageNotFound
		}
		return nil
	})
	r.invalidate(ctx, key)
	if err != nil && !errors.Is(err, archive.ErrPackageNotFound) {
		return fmt.Errorf("delete package %s: %w", key, err)
	}
	return err
}

// ========================================
// VERSIONS
// ========================================

const versionColumns = `package_key, version, name, description, commentary, headers, requires, kind, downloads, created_at`

func scanVersion(row scanner) (*archive.PackageVersion, error) {
	var (
		pv       archive.PackageVersion
		version  []int32
		headers  []byte
		requires []byte
		kind     string
	)
	err := row.Scan(&pv.Key, &version, &pv.Name, &pv.Description, &pv.Commentary,
		&headers, &requires, &kind, &pv.Downloads, &pv.CreatedAt)
	if err != nil {
		return nil, err
	}
	pv.Version = fromInt32s(version)
	pv.Kind = archive.Kind(kind)
	if err := json.Unmarshal(headers, &pv.Headers); err != nil {
		return nil, fmt.Errorf("decode headers: %w", err)
	}
	if err := json.Unmarshal(requires, &pv.Requires); err != nil {
		return nil, fmt.Errorf("decode requires: %w", err)
	}
	return &pv, nil
}

func (r *postgresRepository) InsertVersion(ctx context.Context, pv *archive.PackageVersion) error {
	headers, err := json.Marshal(pv.Headers)
	if err != nil {
		return fmt.Errorf("encode headers: %w", err)
	}
	requires, err := json.Marshal(pv.Requires)
	if err != nil {
		return fmt.Errorf("encode requires: %w", err)
	}

	query := `
		INSERT INTO package_versions (
			package_key, version, name, description, commentary, headers, requires, kind
		) VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8)
		RETURNING created_at
	`
	err = r.pool.QueryRow(ctx, query,
		pv.Key,
		toInt32s(pv.Version),
		pv.Name,
		pv.Description,
		pv.Commentary,
		string(headers),
		string(requires),
		string(pv.Kind),
	).Scan(&pv.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return archive.ErrDuplicateVersion
		}
		return fmt.Errorf("insert version %s %s: %w", pv.Key, pv.Version, err)
	}
	return nil
}

func (r *postgresRepository) FindVersion(ctx context.Context, key string, version archive.Version) (*archive.PackageVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM package_versions WHERE package_key = $1 AND version = $2`
	pv, err := scanVersion(r.pool.QueryRow(ctx, query, key, toInt32s(version)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, archive.ErrVersionNotFound
		}
		return nil, fmt.Errorf("find version %s %s: %w", key, version, err)
	}
	return pv, nil
}

func (r *postgresRepository) ListVersions(ctx context.Context, key string) ([]archive.Version, error) {
	rows, err := r.pool.Query(ctx, `SELECT version FROM package_versions WHERE package_key = $1`, key)
	if err != nil {
		return nil, fmt.Errorf("list versions of %s: %w", key, err)
	}
	defer rows.Close()

	var versions []archive.Version
	for rows.Next() {
		var v []int32
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, fromInt32s(v))
	}
	return versions, rows.Err()
}

func (r *postgresRepository) DeleteVersion(ctx context.Context, key string, version archive.Version) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM package_versions WHERE package_key = $1 AND version = $2`, key, toInt32s(version))
	if err != nil {
		return fmt.Errorf("delete version %s %s: %w", key, version, err)
	}
	if tag.RowsAffected() == 0 {
		return archive.ErrVersionNotFound
	}
	return nil
}

func (r *postgresRepository) IncrementDownloads(ctx context.Context, key string, version archive.Version) error {
	err := database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE package_versions SET downloads = downloads + 1 WHERE package_key = $1 AND version = $2`,
			key, toInt32s(version)); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE packages SET downloads = downloads + 1 WHERE package_key = $1`, key)
		return err
	})
	if err != nil {
		return fmt.Errorf("increment downloads of %s %s: %w", key, version, err)
	}
	r.invalidate(ctx, key)
	return nil
}

// ========================================
// STREAMS
// ========================================

func (r *postgresRepository) StreamPackages(ctx context.Context, filter archive.PackageFilter) iter.Seq2[*archive.Package, error] {
	var (
		clauses []string
		args    []any
	)
	if filter.KeyContains != "" {
		args = append(args, utils.EscapeLike(strings.ToLower(filter.KeyContains)))
		clauses = append(clauses, fmt.Sprintf(`package_key LIKE '%%' || $%d || '%%'`, len(args)))
	}
	if filter.Owner != "" {
		args = append(args, filter.Owner)
		clauses = append(clauses, fmt.Sprintf(`owners ? $%d`, len(args)))
	}

	query := `SELECT ` + packageColumns + ` FROM packages` + utils.JoinWithAnd(clauses) + ` ORDER BY package_key`
	return streamRows(ctx, r.pool, query, args, scanPackage)
}

func (r *postgresRepository) StreamVersions(ctx context.Context, filter archive.VersionFilter) iter.Seq2[*archive.PackageVersion, error] {
	var (
		clauses []string
		args    []any
	)
	if filter.Key != "" {
		args = append(args, filter.Key)
		clauses = append(clauses, fmt.Sprintf(`package_key = $%d`, len(args)))
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		clauses = append(clauses, fmt.Sprintf(`kind = $%d`, len(args)))
	}
	if filter.CreatedAfter != nil {
		args = append(args, *filter.CreatedAfter)
		clauses = append(clauses, fmt.Sprintf(`created_at > $%d`, len(args)))
	}

	query := `SELECT ` + versionColumns + ` FROM package_versions` + utils.JoinWithAnd(clauses) + ` ORDER BY package_key, seq`
	return streamRows(ctx, r.pool, query, args, scanVersion)
}

// streamRows chạy query khi iterator được range; mỗi lần range là một query mới
func streamRows[T any](ctx context.Context, pool *pgxpool.Pool, query string, args []any, scan func(scanner) (*T, error)) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		rows, err := pool.Query(ctx, query, args...)
		if err != nil {
			yield(nil, fmt.Errorf("stream query: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			item, err := scan(rows)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// ========================================
// HELPERS
// ========================================

func toInt32s(v archive.Version) []int32 {
	out := make([]int32, len(v))
	for i, n := range v {
		out[i] = int32(n)
	}
	return out
}

func fromInt32s(v []int32) archive.Version {
	out := make(archive.Version, len(v))
	for i, n := range v {
		out[i] = int(n)
	}
	return out
}
