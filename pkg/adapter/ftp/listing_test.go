package ftp

import (
	"strings"
	"testing"

	"github.com/marmos91/dittoftp/pkg/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatListingRoot(t *testing.T) {
	fs := vfs.New()
	root, err := fs.Stat("/")
	require.NoError(t, err)
	entries, err := fs.List("/")
	require.NoError(t, err)

	out := string(formatListing(root, entries))
	require.True(t, strings.HasSuffix(out, "\r\n"))

	lines := strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "drwxr-xr-x 2 owner group 4096 Jan 01 00:00 .", lines[0])
	assert.Equal(t, "drwxr-xr-x 2 owner group 4096 Jan 01 00:00 ..", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "-rw-r--r-- 1 owner group 1024 "), lines[2])
	assert.True(t, strings.HasSuffix(lines[2], " README.txt"))
	assert.True(t, strings.HasPrefix(lines[4], "drwxr-xr-x 2 owner group 4096 "), lines[4])
	assert.True(t, strings.HasSuffix(lines[5], " images"))
}

func TestFormatListingSingleFile(t *testing.T) {
	fs := vfs.New()
	f, err := fs.Stat("/data.bin")
	require.NoError(t, err)

	out := string(formatListing(f, []vfs.Entry{f}))
	assert.Equal(t, 1, strings.Count(out, "\r\n"))
	assert.Contains(t, out, " 2048 ")
}

func TestListTarget(t *testing.T) {
	assert.Equal(t, "", listTarget(""))
	assert.Equal(t, "", listTarget("-la"))
	assert.Equal(t, "docs", listTarget("-la docs"))
	assert.Equal(t, "/images", listTarget("/images"))
}
