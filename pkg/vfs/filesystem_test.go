package vfs

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestSeedTree(t *testing.T) {
	fs := New()

	root, err := fs.List("/")
	require.NoError(t, err)
	assert.Equal(t, []string{"README.txt", "data.bin", "docs", "images"}, names(root))

	docs, err := fs.List("/docs")
	require.NoError(t, err)
	assert.Equal(t, []string{"manual.pdf", "specs.doc", "specs"}, names(docs))

	images, err := fs.List("/images")
	require.NoError(t, err)
	assert.Equal(t, []string{"photo.jpg", "icon.png", "thumbnails"}, names(images))

	sizes := map[string]int64{
		"/README.txt":                   1024,
		"/data.bin":                     2048,
		"/docs/manual.pdf":              4096,
		"/docs/specs.doc":               3072,
		"/docs/specs/api.md":            512,
		"/images/photo.jpg":             8192,
		"/images/icon.png":              1024,
		"/images/thumbnails/thumb1.jpg": 256,
	}
	for p, size := range sizes {
		e, err := fs.Resolve("/", p)
		require.NoError(t, err, p)
		assert.Equal(t, KindFile, e.Kind, p)
		assert.Equal(t, size, e.Size, p)
	}
}

func TestSeedIsDeterministic(t *testing.T) {
	a, err := New().ReadFile("/README.txt")
	require.NoError(t, err)
	b, err := New().ReadFile("/README.txt")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestResolve(t *testing.T) {
	fs := New()

	tests := []struct {
		name     string
		base     string
		target   string
		wantPath string
		wantKind Kind
		wantCode *ErrorCode
	}{
		{name: "root", base: "/", target: "/", wantPath: "/", wantKind: KindDirectory},
		{name: "relative dir", base: "/", target: "docs", wantPath: "/docs", wantKind: KindDirectory},
		{name: "dot dot from docs", base: "/docs", target: "..", wantPath: "/", wantKind: KindDirectory},
		{name: "dot dot above root", base: "/", target: "../..", wantPath: "/", wantKind: KindDirectory},
		{name: "dot segments", base: "/docs", target: "./specs/.", wantPath: "/docs/specs", wantKind: KindDirectory},
		{name: "absolute ignores base", base: "/docs/specs", target: "/images/thumbnails", wantPath: "/images/thumbnails", wantKind: KindDirectory},
		{name: "sibling", base: "/docs", target: "../images", wantPath: "/images", wantKind: KindDirectory},
		{name: "file", base: "/docs/specs", target: "api.md", wantPath: "/docs/specs/api.md", wantKind: KindFile},
		{name: "duplicate slashes", base: "/", target: "//docs//specs/", wantPath: "/docs/specs", wantKind: KindDirectory},
		{name: "missing", base: "/", target: "nope", wantCode: ptr(ErrNotFound)},
		{name: "missing nested", base: "/docs", target: "specs/none/deeper", wantCode: ptr(ErrNotFound)},
		{name: "through file", base: "/", target: "README.txt/x", wantCode: ptr(ErrNotDirectory)},
		{name: "dot dot through file", base: "/", target: "README.txt/..", wantCode: ptr(ErrNotDirectory)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := fs.Resolve(tt.base, tt.target)
			if tt.wantCode != nil {
				require.Error(t, err)
				assert.True(t, HasCode(err, *tt.wantCode), "got %v", err)
				assert.True(t, IsPathNotFound(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, e.Path)
			assert.Equal(t, tt.wantKind, e.Kind)
		})
	}
}

func TestListNonDirectory(t *testing.T) {
	_, err := New().List("/data.bin")
	assert.True(t, HasCode(err, ErrNotDirectory))

	_, err = New().List("/missing")
	assert.True(t, HasCode(err, ErrNotFound))
}

func TestPutFileCreatesAndOverwrites(t *testing.T) {
	fs := New()

	e, err := fs.PutFile("/docs", "new.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "/docs/new.txt", e.Path)
	assert.Equal(t, int64(5), e.Size)

	e, err = fs.PutFile("/docs", "new.txt", []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, int64(11), e.Size)

	entries, err := fs.List("/docs")
	require.NoError(t, err)
	assert.Equal(t, []string{"manual.pdf", "specs.doc", "specs", "new.txt"}, names(entries))

	data, err := fs.ReadFile("/docs/new.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestPutFileOverwriteKeepsPosition(t *testing.T) {
	fs := New()

	_, err := fs.PutFile("/", "README.txt", []byte("short"))
	require.NoError(t, err)

	entries, err := fs.List("/")
	require.NoError(t, err)
	assert.Equal(t, []string{"README.txt", "data.bin", "docs", "images"}, names(entries))
	assert.Equal(t, int64(5), entries[0].Size)
}

func TestPutFileCopiesInput(t *testing.T) {
	fs := New()
	buf := []byte("abc")

	_, err := fs.PutFile("/", "copy.bin", buf)
	require.NoError(t, err)
	buf[0] = 'z'

	data, err := fs.ReadFile("/copy.bin")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}

func TestPutFileErrors(t *testing.T) {
	fs := New()

	_, err := fs.PutFile("/", "docs", []byte("x"))
	assert.True(t, HasCode(err, ErrIsDirectory))

	for _, bad := range []string{"", ".", "..", "a/b"} {
		_, err := fs.PutFile("/", bad, nil)
		assert.True(t, HasCode(err, ErrInvalidName), "name %q", bad)
	}

	_, err = fs.PutFile("/missing", "f", nil)
	assert.True(t, HasCode(err, ErrNotFound))

	_, err = fs.PutFile("/data.bin", "f", nil)
	assert.True(t, HasCode(err, ErrNotDirectory))

	// The docs subtree is untouched by any of the above.
	docs, err := fs.List("/docs")
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestConcurrentPutAndList(t *testing.T) {
	fs := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := fs.PutFile("/images", fmt.Sprintf("up-%d.bin", i%5), []byte{byte(i)})
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			_, err := fs.List("/images")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := fs.List("/images")
	require.NoError(t, err)
	assert.Len(t, entries, 3+5)
}

func ptr(c ErrorCode) *ErrorCode { return &c }

func TestStatAndValidateName(t *testing.T) {
	fs := New()

	e, err := fs.Stat("/docs/specs/api.md")
	require.NoError(t, err)
	assert.Equal(t, int64(512), e.Size)
	assert.False(t, e.IsDir())

	_, err = fs.Stat("/nope")
	assert.True(t, IsPathNotFound(err))

	assert.NoError(t, ValidateName("ok.txt"))
	for _, bad := range []string{"", ".", "..", "a/b"} {
		assert.True(t, HasCode(ValidateName(bad), ErrInvalidName), bad)
	}
}
