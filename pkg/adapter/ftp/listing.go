package ftp

import (
	"fmt"
	"strings"
	"time"

	"github.com/marmos91/dittoftp/pkg/vfs"
)

const listTimeFormat = "Jan 02 15:04"

// formatListing renders entries as "ls -l" lines, CRLF terminated.
//
// When dir is a directory the listing starts with "." and ".." lines.
func formatListing(dir vfs.Entry, entries []vfs.Entry) []byte {
	var b strings.Builder

	if dir.IsDir() {
		writeListLine(&b, vfs.KindDirectory, vfs.DirectorySize, dir.ModTime, ".")
		writeListLine(&b, vfs.KindDirectory, vfs.DirectorySize, dir.ModTime, "..")
	}
	for _, e := range entries {
		writeListLine(&b, e.Kind, e.Size, e.ModTime, e.Name)
	}
	return []byte(b.String())
}

func writeListLine(b *strings.Builder, kind vfs.Kind, size int64, modTime time.Time, name string) {
	perms, links := "-rw-r--r--", 1
	if kind == vfs.KindDirectory {
		perms, links = "drwxr-xr-x", 2
	}
	fmt.Fprintf(b, "%s %d owner group %d %s %s\r\n",
		perms, links, size, modTime.UTC().Format(listTimeFormat), name)
}

// listTarget strips "ls"-style flags from a LIST argument.
func listTarget(arg string) string {
	fields := strings.Fields(arg)
	kept := fields[:0]
	for _, f := range fields {
		if strings.HasPrefix(f, "-") {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}
