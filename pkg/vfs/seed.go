package vfs

import (
	"bytes"
	"time"
)

// seedEpoch is the modification time of the root and seeded directories.
var seedEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

type seedFile struct {
	name string
	size int
	day  int
	fill string
}

type seedDir struct {
	name  string
	files []seedFile
	dirs  []seedDir
}

// seedTree is the fixed content every server starts with. Sizes are nominal
// and deterministic so listings are reproducible across runs.
var seedTree = seedDir{
	name: "/",
	files: []seedFile{
		{name: "README.txt", size: 1024, day: 1, fill: "Welcome to FTP server\n"},
		{name: "data.bin", size: 2048, day: 2, fill: "Binary data"},
	},
	dirs: []seedDir{
		{
			name: "docs",
			files: []seedFile{
				{name: "manual.pdf", size: 4096, day: 3, fill: "PDF content"},
				{name: "specs.doc", size: 3072, day: 4, fill: "Doc content"},
			},
			dirs: []seedDir{
				{
					name: "specs",
					files: []seedFile{
						{name: "api.md", size: 512, day: 5, fill: "API docs\n"},
					},
				},
			},
		},
		{
			name: "images",
			files: []seedFile{
				{name: "photo.jpg", size: 8192, day: 6, fill: "JPEG data"},
				{name: "icon.png", size: 1024, day: 7, fill: "PNG data"},
			},
			dirs: []seedDir{
				{
					name: "thumbnails",
					files: []seedFile{
						{name: "thumb1.jpg", size: 256, day: 8, fill: "Small JPEG"},
					},
				},
			},
		},
	},
}

func seed(root *node) {
	populate(root, seedTree)
}

// populate adds files before subdirectories, matching the documented root
// order: README.txt, data.bin, docs/, images/.
func populate(dir *node, spec seedDir) {
	for _, f := range spec.files {
		dir.addChild(&node{
			name:    f.name,
			kind:    KindFile,
			content: placeholder(f.fill, f.size),
			modTime: seedEpoch.AddDate(0, 0, f.day-1),
		})
	}
	for _, d := range spec.dirs {
		child := newDir(d.name, seedEpoch)
		populate(child, d)
		dir.addChild(child)
	}
}

// placeholder repeats fill until exactly size bytes.
func placeholder(fill string, size int) []byte {
	if size <= 0 {
		return []byte{}
	}
	repeated := bytes.Repeat([]byte(fill), size/len(fill)+1)
	return repeated[:size]
}
