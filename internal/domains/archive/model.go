package archive

import (
	"fmt"
	"time"

	"elpa-backend/internal/shared/apperror"
	"elpa-backend/internal/shared/utils"
	"elpa-backend/pkg/sexp"
)

// Kind - loại package
type Kind string

const (
	KindSingle Kind = "single" // một file .el
	KindTar    Kind = "tar"    // archive name-version/ chứa name-pkg.el
)

// IsValid kiểm tra kind hợp lệ
func (k Kind) IsValid() bool {
	return k == KindSingle || k == KindTar
}

// Extension trả về đuôi file tương ứng, dùng cho blob key và download URL
func (k Kind) Extension() string {
	if k == KindTar {
		return "tar"
	}
	return "el"
}

func (k Kind) String() string { return string(k) }

// KindFromExtension map "el"/".el" → single, "tar"/".tar" → tar
func KindFromExtension(ext string) (Kind, error) {
	if len(ext) > 0 && ext[0] == '.' {
		ext = ext[1:]
	}
	switch ext {
	case "el":
		return KindSingle, nil
	case "tar":
		return KindTar, nil
	}
	return "", apperror.NewInputError("unsupported package extension %q", ext)
}

// Dependency - một cặp (name, version) trong Package-Requires
type Dependency struct {
	Name    string  `json:"name"`
	Version Version `json:"version"`
}

// MarshalSexp renders (name (1 2))
func (d Dependency) MarshalSexp() (sexp.Value, error) {
	v, _ := d.Version.MarshalSexp()
	return sexp.List(sexp.Symbol(d.Name), v), nil
}

// PackageVersion là một artifact đã upload
type PackageVersion struct {
	Key         string            `json:"key"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Commentary  *string           `json:"commentary,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Requires    []Dependency      `json:"requires"`
	Version     Version           `json:"version"`
	Kind        Kind              `json:"kind"`

	// Persistence fields
	CreatedAt time.Time `json:"created_at"`
	Downloads int64     `json:"downloads"`
}

// NewPackageVersion tạo PackageVersion với key derive từ name
func NewPackageVersion(name string, version Version, kind Kind) *PackageVersion {
	return &PackageVersion{
		Key:      NameToKey(name),
		Name:     name,
		Headers:  map[string]string{},
		Requires: []Dependency{},
		Version:  version,
		Kind:     kind,
	}
}

// BlobKey trả về key trong blob store: <key>.<ext>/<version>
func (pv *PackageVersion) BlobKey() string {
	return BlobKey(pv.Key, pv.Kind, pv.Version)
}

// Filename trả về tên file package manager tải về: name-1.2.3.el
func (pv *PackageVersion) Filename() string {
	return fmt.Sprintf("%s-%s.%s", pv.Name, pv.Version, pv.Kind.Extension())
}

// Package là aggregate của mọi version cùng key
type Package struct {
	Key           string            `json:"key"`
	Name          string            `json:"name"`
	Owners        map[string]string `json:"owners"` // user key → email
	CreatedAt     time.Time         `json:"created_at"`
	Downloads     int64             `json:"downloads"`
	LatestVersion *PackageVersion   `json:"latest_version,omitempty"`

	// Uploaded là version vừa save, chỉ có trong kết quả SavePackageVersion
	Uploaded *PackageVersion `json:"uploaded,omitempty"`
}

// HasOwner kiểm tra user key có trong owners
func (p *Package) HasOwner(userKey string) bool {
	_, ok := p.Owners[userKey]
	return ok
}

// NameToKey là hàm thuần: lowercase + thay ký tự không an toàn cho path
func NameToKey(name string) string {
	return utils.GenerateKey(name)
}

// BlobKey derive blob key từ (key, kind, version)
func BlobKey(key string, kind Kind, version Version) string {
	return fmt.Sprintf("%s.%s/%s", key, kind.Extension(), version)
}
