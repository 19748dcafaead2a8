package archive

import (
	"errors"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"elpa-backend/internal/shared/apperror"
	"elpa-backend/pkg/sexp"
)

// ============================================
// REQUEST DTOs
// ============================================

// OwnerRequest - thêm/xoá owner, lấy từ path /:name/owners/:owner
type OwnerRequest struct {
	Package string `json:"package"`
	Owner   string `json:"owner"`
}

func (r OwnerRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Package, validation.Required.Error("package name is required")),
		validation.Field(&r.Owner,
			validation.Required.Error("owner name is required"),
			validation.Length(1, 64).Error("owner name must be at most 64 characters"),
		),
	)
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for _, field := range []string{"package", "owner"} {
			if fe, ok := verrs[field]; ok {
				return apperror.NewInputError("%s", fe.Error())
			}
		}
	}
	return apperror.NewInputError("%s", err.Error())
}

// PackageKey là key của package trong request
func (r OwnerRequest) PackageKey() string { return NameToKey(r.Package) }

// ============================================
// RESPONSE DTOs
// ============================================

// PackageSummary - item trong danh sách / search
type PackageSummary struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Version     Version `json:"version,omitempty"`
	Downloads   int64   `json:"downloads"`
}

// ToSummary chuyển Package sang PackageSummary
func (p *Package) ToSummary() PackageSummary {
	s := PackageSummary{Key: p.Key, Name: p.Name, Downloads: p.Downloads}
	if p.LatestVersion != nil {
		s.Description = p.LatestVersion.Description
		s.Version = p.LatestVersion.Version
	}
	return s
}

// RepairReport - kết quả RepairOwnership
type RepairReport struct {
	PackagesScanned int      `json:"packages_scanned"`
	UsersScanned    int      `json:"users_scanned"`
	LinksAdded      []string `json:"links_added"`   // "user:package"
	LinksRemoved    []string `json:"links_removed"` // "user:package"
}

// ============================================
// S-EXPRESSION RENDERING
// ============================================

// MarshalSexp renders an alist: ((name . "foo") (version . (1 2)) ...)
func (pv *PackageVersion) MarshalSexp() (sexp.Value, error) {
	reqs := make([]sexp.Value, len(pv.Requires))
	for i, d := range pv.Requires {
		reqs[i], _ = d.MarshalSexp()
	}
	version, _ := pv.Version.MarshalSexp()

	fields := []sexp.Value{
		pair("name", sexp.String(pv.Name)),
		pair("version", version),
		pair("kind", sexp.Symbol(string(pv.Kind))),
		pair("requires", sexp.List(reqs...)),
		pair("downloads", sexp.Int(int(pv.Downloads))),
	}
	if pv.Description != "" {
		fields = append(fields, pair("description", sexp.String(pv.Description)))
	}
	if pv.Commentary != nil {
		fields = append(fields, pair("commentary", sexp.String(*pv.Commentary)))
	}
	if len(pv.Headers) > 0 {
		names := make([]string, 0, len(pv.Headers))
		for name := range pv.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		headers := make([]sexp.Value, len(names))
		for i, name := range names {
			headers[i] = sexp.Cons(sexp.String(name), sexp.String(pv.Headers[name]))
		}
		fields = append(fields, pair("headers", sexp.List(headers...)))
	}
	return sexp.List(fields...), nil
}

// MarshalSexp renders the package alist; owners are listed by user key.
func (p *Package) MarshalSexp() (sexp.Value, error) {
	owners := make([]string, 0, len(p.Owners))
	for k := range p.Owners {
		owners = append(owners, k)
	}
	sort.Strings(owners)
	ownerVals := make([]sexp.Value, len(owners))
	for i, o := range owners {
		ownerVals[i] = sexp.String(o)
	}

	fields := []sexp.Value{
		pair("name", sexp.String(p.Name)),
		pair("owners", sexp.List(ownerVals...)),
		pair("downloads", sexp.Int(int(p.Downloads))),
	}
	if p.LatestVersion != nil {
		latest, err := p.LatestVersion.MarshalSexp()
		if err != nil {
			return sexp.Value{}, err
		}
		fields = append(fields, pair("latest", latest))
	}
	return sexp.List(fields...), nil
}

// ArchiveEntry renders one archive-contents entry:
// (name . [(1 2) ((dep (0 1))) "desc" single])
func (pv *PackageVersion) ArchiveEntry() sexp.Value {
	reqs := make([]sexp.Value, len(pv.Requires))
	for i, d := range pv.Requires {
		reqs[i], _ = d.MarshalSexp()
	}
	version, _ := pv.Version.MarshalSexp()
	return sexp.Cons(
		sexp.Symbol(pv.Name),
		sexp.Vector(version, sexp.List(reqs...), sexp.String(pv.Description), sexp.Symbol(string(pv.Kind))),
	)
}

func pair(name string, v sexp.Value) sexp.Value {
	return sexp.Cons(sexp.Symbol(name), v)
}
