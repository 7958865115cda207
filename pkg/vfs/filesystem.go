// Package vfs implements the in-memory directory tree served to FTP clients.
//
// The tree is rooted at a single "/" directory and exclusively owns its nodes.
// Nodes are created at construction (the seed content) or by PutFile; nothing
// ever removes a node.
//
// Callers never receive pointers into the tree. Every read returns an Entry
// value snapshot, so a listing handed to a slow data connection cannot observe
// (or race with) a concurrent upload.
package vfs

import (
	"strings"
	"sync"
	"time"
)

// Kind distinguishes files from directories.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// DirectorySize is the nominal size reported for directories in listings.
const DirectorySize = 4096

// Entry is an immutable snapshot of a node.
type Entry struct {
	// Name is the node's name within its parent ("/" for the root)
	Name string

	// Path is the cleaned absolute path of the node
	Path string

	// Kind is file or directory
	Kind Kind

	// Size is the byte length for files and DirectorySize for directories
	Size int64

	// ModTime is the last modification time
	ModTime time.Time
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Kind == KindDirectory
}

// node is the internal tree representation.
//
// Directories keep both a name index and an insertion-ordered name list so
// listings are stable across runs.
type node struct {
	name    string
	kind    Kind
	content []byte
	modTime time.Time

	children map[string]*node
	order    []string
}

func newDir(name string, modTime time.Time) *node {
	return &node{
		name:     name,
		kind:     KindDirectory,
		modTime:  modTime,
		children: make(map[string]*node),
	}
}

func (n *node) size() int64 {
	if n.kind == KindDirectory {
		return DirectorySize
	}
	return int64(len(n.content))
}

func (n *node) entry(path string) Entry {
	return Entry{
		Name:    n.name,
		Path:    path,
		Kind:    n.kind,
		Size:    n.size(),
		ModTime: n.modTime,
	}
}

// addChild inserts or replaces a child, preserving the original position on
// replacement.
func (n *node) addChild(child *node) {
	if _, exists := n.children[child.name]; !exists {
		n.order = append(n.order, child.name)
	}
	n.children[child.name] = child
}

// FileSystem is a concurrency-safe in-memory directory tree.
//
// Thread Safety:
// A single read-write mutex guards the whole tree. Resolve and List take the
// read lock; PutFile takes the write lock. No operation spans another shared
// structure, so no lock ordering concerns exist.
type FileSystem struct {
	mu   sync.RWMutex
	root *node
	now  func() time.Time
}

// New creates a filesystem pre-populated with the fixed seed tree.
func New() *FileSystem {
	fs := NewEmpty()
	seed(fs.root)
	return fs
}

// NewEmpty creates a filesystem that contains only the root directory.
func NewEmpty() *FileSystem {
	return &FileSystem{
		root: newDir("/", seedEpoch),
		now:  time.Now,
	}
}

// Resolve resolves target against base and returns the node it names.
//
// base must be an absolute path to an existing directory (normally a session's
// current directory). target may be absolute or relative; "." and ".." are
// honored and ".." at the root stays at the root.
//
// Segments are walked one by one, so "README.txt/.." fails with
// ErrNotDirectory instead of being lexically cleaned back to "/".
func (fs *FileSystem) Resolve(base, target string) (Entry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	n, p, err := fs.resolveLocked(base, target)
	if err != nil {
		return Entry{}, err
	}
	return n.entry(p), nil
}

// List returns the children of the directory at dirPath in insertion order.
func (fs *FileSystem) List(dirPath string) ([]Entry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	dir, p, err := fs.resolveLocked("/", dirPath)
	if err != nil {
		return nil, err
	}
	if dir.kind != KindDirectory {
		return nil, &FSError{Code: ErrNotDirectory, Message: "not a directory", Path: p}
	}

	entries := make([]Entry, 0, len(dir.order))
	for _, name := range dir.order {
		entries = append(entries, dir.children[name].entry(join(p, name)))
	}
	return entries, nil
}

// PutFile creates name under the directory at dirPath, or replaces the content
// of an existing file with that name. The stored slice is a private copy.
//
// Existing directories are never replaced: naming one fails with
// ErrIsDirectory.
func (fs *FileSystem) PutFile(dirPath, name string, data []byte) (Entry, error) {
	if err := validateName(name); err != nil {
		return Entry{}, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir, p, err := fs.resolveLocked("/", dirPath)
	if err != nil {
		return Entry{}, err
	}
	if dir.kind != KindDirectory {
		return Entry{}, &FSError{Code: ErrNotDirectory, Message: "not a directory", Path: p}
	}

	if existing, ok := dir.children[name]; ok && existing.kind == KindDirectory {
		return Entry{}, &FSError{Code: ErrIsDirectory, Message: "is a directory", Path: join(p, name)}
	}

	content := make([]byte, len(data))
	copy(content, data)

	f := &node{
		name:    name,
		kind:    KindFile,
		content: content,
		modTime: fs.now(),
	}
	dir.addChild(f)
	dir.modTime = f.modTime

	return f.entry(join(p, name)), nil
}

// Stat returns the entry at the absolute path p.
func (fs *FileSystem) Stat(p string) (Entry, error) {
	return fs.Resolve("/", p)
}

// ReadFile returns a copy of the content stored at filePath.
func (fs *FileSystem) ReadFile(filePath string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	n, p, err := fs.resolveLocked("/", filePath)
	if err != nil {
		return nil, err
	}
	if n.kind != KindFile {
		return nil, &FSError{Code: ErrIsDirectory, Message: "is a directory", Path: p}
	}

	out := make([]byte, len(n.content))
	copy(out, n.content)
	return out, nil
}

// resolveLocked walks target from base. Caller must hold fs.mu.
func (fs *FileSystem) resolveLocked(base, target string) (*node, string, error) {
	stack := []*node{fs.root}
	names := []string{}

	walk := func(spec string) error {
		for _, seg := range strings.Split(spec, "/") {
			if seg == "" || seg == "." {
				continue
			}

			cur := stack[len(stack)-1]
			if cur.kind != KindDirectory {
				return &FSError{Code: ErrNotDirectory, Message: "not a directory", Path: "/" + strings.Join(names, "/")}
			}

			if seg == ".." {
				if len(stack) > 1 {
					stack = stack[:len(stack)-1]
					names = names[:len(names)-1]
				}
				continue
			}

			child, ok := cur.children[seg]
			if !ok {
				return &FSError{Code: ErrNotFound, Message: "no such file or directory", Path: "/" + strings.Join(append(names, seg), "/")}
			}
			stack = append(stack, child)
			names = append(names, seg)
		}
		return nil
	}

	if !strings.HasPrefix(target, "/") {
		if err := walk(base); err != nil {
			return nil, "", err
		}
	}
	if err := walk(target); err != nil {
		return nil, "", err
	}

	return stack[len(stack)-1], "/" + strings.Join(names, "/"), nil
}

// ValidateName reports whether name can be stored as a single directory entry.
func ValidateName(name string) error {
	return validateName(name)
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return &FSError{Code: ErrInvalidName, Message: "invalid file name", Path: name}
	}
	return nil
}

func join(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
