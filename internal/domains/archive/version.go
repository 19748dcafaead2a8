package archive

import (
	"strconv"
	"strings"

	"elpa-backend/internal/shared/apperror"
	"elpa-backend/pkg/sexp"
)

// Version là dãy số nguyên không âm, so sánh từng phần tử từ trái sang phải.
// "1.10" > "1.9" (so sánh số, không phải string)
type Version []int

// ParseVersion parse chuỗi "1.2.3" → Version{1, 2, 3}.
// Mọi segment phải toàn chữ số và vừa int32.
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return nil, apperror.NewSyntaxError("invalid version string %q", s)
	}

	parts := strings.Split(s, ".")
	v := make(Version, len(parts))
	for i, part := range parts {
		if part == "" || strings.TrimLeft(part, "0123456789") != "" {
			return nil, apperror.NewSyntaxError("invalid version string %q", s)
		}
		// segment lưu dạng INTEGER[] trong postgres
		n, err := strconv.ParseInt(part, 10, 32)
		if err != nil {
			return nil, apperror.NewSyntaxError("invalid version string %q: segment %s out of range", s, part)
		}
		v[i] = int(n)
	}
	return v, nil
}

// MustParseVersion dùng cho constant trong code và tests
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Compare trả về -1, 0, 1. Version ngắn hơn là prefix của version dài hơn thì nhỏ hơn.
func (v Version) Compare(o Version) int {
	for i := 0; i < len(v) && i < len(o); i++ {
		switch {
		case v[i] < o[i]:
			return -1
		case v[i] > o[i]:
			return 1
		}
	}
	switch {
	case len(v) < len(o):
		return -1
	case len(v) > len(o):
		return 1
	}
	return 0
}

func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// MarshalSexp renders (1 2 3)
func (v Version) MarshalSexp() (sexp.Value, error) {
	items := make([]sexp.Value, len(v))
	for i, n := range v {
		items[i] = sexp.Int(n)
	}
	return sexp.List(items...), nil
}

// MaxVersion trả về version lớn nhất, nil nếu list rỗng
func MaxVersion(versions []Version) Version {
	var best Version
	for _, v := range versions {
		if best == nil || best.Less(v) {
			best = v
		}
	}
	return best
}
