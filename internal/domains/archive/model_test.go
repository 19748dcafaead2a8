package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elpa-backend/internal/shared/apperror"
	"elpa-backend/pkg/sexp"
)

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("1.2.3")
	require.NoError(t, err)
	assert.Equal(t, Version{1, 2, 3}, v)
	assert.Equal(t, "1.2.3", v.String())

	for _, bad := range []string{"", "1..2", "1.2a", "v1", "-1", "1.2."} {
		_, err := ParseVersion(bad)
		require.Error(t, err, bad)
		assert.True(t, apperror.IsSyntaxError(err))
		assert.Contains(t, err.Error(), bad)
	}

	v, err = ParseVersion("2147483647.0")
	require.NoError(t, err)
	assert.Equal(t, Version{2147483647, 0}, v)

	for _, tooBig := range []string{"2147483648.0", "4294967297", "1.99999999999999999999"} {
		_, err := ParseVersion(tooBig)
		require.Error(t, err, tooBig)
		assert.True(t, apperror.IsSyntaxError(err))
		assert.Contains(t, err.Error(), "out of range")
	}
}

func TestVersionOrdering(t *testing.T) {
	a, b, c := Version{1, 2}, Version{1, 10}, Version{2, 0}
	assert.True(t, a.Less(b), "numeric, not string, comparison")
	assert.True(t, b.Less(c))
	assert.True(t, a.Less(c))
	assert.False(t, b.Less(a))

	assert.Equal(t, -1, Version{1}.Compare(Version{1, 0}))
	assert.Equal(t, 1, Version{1, 0, 1}.Compare(Version{1, 0}))
	assert.Equal(t, 0, Version{3, 1}.Compare(Version{3, 1}))
	assert.True(t, Version{0, 9}.Equal(MustParseVersion("0.9")))

	assert.Equal(t, Version{1, 10}, MaxVersion([]Version{a, b, {1, 9}}))
	assert.Nil(t, MaxVersion(nil))
}

func TestKindsAndKeys(t *testing.T) {
	k, err := KindFromExtension(".el")
	require.NoError(t, err)
	assert.Equal(t, KindSingle, k)

	k, err = KindFromExtension("tar")
	require.NoError(t, err)
	assert.Equal(t, KindTar, k)

	_, err = KindFromExtension("zip")
	assert.True(t, apperror.IsInputError(err))

	pv := NewPackageVersion("Foo.Mode", Version{1, 0}, KindTar)
	assert.Equal(t, "foo_mode", pv.Key)
	assert.Equal(t, "foo_mode.tar/1.0", pv.BlobKey())
	assert.Equal(t, "Foo.Mode-1.0.tar", pv.Filename())
}

func TestArchiveEntry(t *testing.T) {
	pv := NewPackageVersion("foo", Version{1, 2, 3}, KindSingle)
	pv.Description = "A test package"
	pv.Requires = []Dependency{{Name: "bar", Version: Version{0, 1}}}

	assert.Equal(t, `(foo . [(1 2 3) ((bar (0 1))) "A test package" single])`, sexp.Serialize(pv.ArchiveEntry()))

	out, err := sexp.Encode(pv)
	require.NoError(t, err)
	parsed, err := sexp.ParseOne(out)
	require.NoError(t, err)
	assert.Equal(t, 6, parsed.Len())
}

func TestOwnerRequest_Validate(t *testing.T) {
	req := OwnerRequest{Package: "Foo.Mode", Owner: "bob"}
	require.NoError(t, req.Validate())
	assert.Equal(t, "foo_mode", req.PackageKey())

	err := OwnerRequest{Package: "foo"}.Validate()
	assert.True(t, apperror.IsInputError(err))
	assert.ErrorContains(t, err, "owner name is required")

	long := make([]byte, 65)
	for i := range long {
		long[i] = 'a'
	}
	err = OwnerRequest{Package: "foo", Owner: string(long)}.Validate()
	assert.ErrorContains(t, err, "at most 64")
}
