package model

import (
	"path"
	"sort"
	"strings"

	"github.com/hive2hive/h2h/internal/security"
)

// Index is a node in the user's profile tree: either a FolderIndex or a
// FileIndex. Both carry a node keypair whose public half is the node's
// stable identity (SPEC_FULL.md §5).
type Index interface {
	ID() PublicKeyID
	Name() string
	ParentID() PublicKeyID
	KeyPair() security.KeyPair
	isIndex()
}

// FolderIndex is a directory node. Children are owned by the folder they
// live in; the folder's own parent is a weak (non-owning) reference
// resolved through the Tree's arena, never a pointer back-edge.
type FolderIndex struct {
	name       string
	parentID   PublicKeyID
	keyPair    security.KeyPair
	children   map[PublicKeyID]Index
	// SharedWith holds the userIDs a folder has been explicitly shared
	// with, along with whether they may write (SPEC_FULL.md §4.6 "share
	// folder"). Root folders are never shared directly; sharing applies
	// to the shared folder and is inherited by descendants at read time.
	SharedWith map[string]bool // userID -> canWrite
}

func NewFolderIndex(name string, parentID PublicKeyID, kp security.KeyPair) *FolderIndex {
	return &FolderIndex{
		name:       name,
		parentID:   parentID,
		keyPair:    kp,
		children:   make(map[PublicKeyID]Index),
		SharedWith: make(map[string]bool),
	}
}

func (f *FolderIndex) ID() PublicKeyID          { return PublicKeyIDOf(f.keyPair.Public) }
func (f *FolderIndex) Name() string             { return f.name }
func (f *FolderIndex) ParentID() PublicKeyID    { return f.parentID }
func (f *FolderIndex) KeyPair() security.KeyPair { return f.keyPair }
func (f *FolderIndex) isIndex()                 {}

func (f *FolderIndex) SetParentID(id PublicKeyID) { f.parentID = id }

// Rename changes the folder's name in place, used by the move process.
func (f *FolderIndex) Rename(name string) { f.name = name }

// Children returns the folder's children sorted by name, for deterministic
// iteration (directory listings, tests).
func (f *FolderIndex) Children() []Index {
	out := make([]Index, 0, len(f.children))
	for _, c := range f.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

func (f *FolderIndex) AddChild(idx Index) { f.children[idx.ID()] = idx }

func (f *FolderIndex) RemoveChild(id PublicKeyID) { delete(f.children, id) }

func (f *FolderIndex) ChildByName(name string) (Index, bool) {
	for _, c := range f.children {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// FileIndex is a file node. It references its meta-file by the public half
// of its own keypair: MetaFile.ID == FileIndex.ID().
type FileIndex struct {
	name     string
	parentID PublicKeyID
	keyPair  security.KeyPair
	MD5      [16]byte
}

func NewFileIndex(name string, parentID PublicKeyID, kp security.KeyPair, md5 [16]byte) *FileIndex {
	return &FileIndex{name: name, parentID: parentID, keyPair: kp, MD5: md5}
}

func (fi *FileIndex) ID() PublicKeyID          { return PublicKeyIDOf(fi.keyPair.Public) }
func (fi *FileIndex) Name() string             { return fi.name }
func (fi *FileIndex) ParentID() PublicKeyID    { return fi.parentID }
func (fi *FileIndex) KeyPair() security.KeyPair { return fi.keyPair }
func (fi *FileIndex) isIndex()                 {}
func (fi *FileIndex) SetParentID(id PublicKeyID) { fi.parentID = id }

// SetMD5 updates the digest of the file's latest content, called by the
// update pipeline after a new version is uploaded.
func (fi *FileIndex) SetMD5(md5 [16]byte) { fi.MD5 = md5 }

// Rename changes the file's name in place, used by the move process.
func (fi *FileIndex) Rename(name string) { fi.name = name }

// Tree is the arena resolving Index parent/child relationships without
// pointer cycles (SPEC_FULL.md §9 Design Notes). The tree exclusively owns
// its nodes; Index.ParentID is a weak reference resolved only on demand.
type Tree struct {
	Root  *FolderIndex
	nodes map[PublicKeyID]Index
}

func NewTree(root *FolderIndex) *Tree {
	t := &Tree{Root: root, nodes: make(map[PublicKeyID]Index)}
	t.nodes[root.ID()] = root
	return t
}

func (t *Tree) Get(id PublicKeyID) (Index, bool) {
	idx, ok := t.nodes[id]
	return idx, ok
}

func (t *Tree) Parent(idx Index) (*FolderIndex, bool) {
	parent, ok := t.nodes[idx.ParentID()]
	if !ok {
		return nil, false
	}
	folder, ok := parent.(*FolderIndex)
	return folder, ok
}

// Insert adds idx as a child of parent, registering it in the arena.
func (t *Tree) Insert(parent *FolderIndex, idx Index) {
	parent.AddChild(idx)
	t.nodes[idx.ID()] = idx
}

// Remove detaches idx from its parent and the arena. Children of a removed
// folder become unreachable along with it.
func (t *Tree) Remove(idx Index) {
	if parent, ok := t.Parent(idx); ok {
		parent.RemoveChild(idx.ID())
	}
	delete(t.nodes, idx.ID())
}

// Move reparents idx under newParent, both already present in the tree.
func (t *Tree) Move(idx Index, newParent *FolderIndex) {
	if parent, ok := t.Parent(idx); ok {
		parent.RemoveChild(idx.ID())
	}
	switch v := idx.(type) {
	case *FolderIndex:
		v.SetParentID(newParent.ID())
	case *FileIndex:
		v.SetParentID(newParent.ID())
	}
	newParent.AddChild(idx)
}

// Path walks idx to the root and returns the slash-separated path, e.g.
// "/docs/report.txt". The root itself has path "/".
func (t *Tree) Path(idx Index) string {
	var parts []string
	cur := idx
	for {
		parent, ok := t.Parent(cur)
		if !ok {
			break
		}
		parts = append([]string{cur.Name()}, parts...)
		cur = parent
	}
	return "/" + strings.Join(parts, "/")
}

// Resolve finds the Index at the given slash-separated path relative to the
// tree root, or false if it does not exist.
func (t *Tree) Resolve(p string) (Index, bool) {
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" {
		return t.Root, true
	}
	cur := Index(t.Root)
	for _, segment := range strings.Split(p, "/") {
		folder, ok := cur.(*FolderIndex)
		if !ok {
			return nil, false
		}
		child, ok := folder.ChildByName(segment)
		if !ok {
			return nil, false
		}
		cur = child
	}
	return cur, true
}

// IsInside reports whether p, interpreted relative to root, stays within
// root; it returns false when a leading run of ".." segments would walk
// above root. Unlike path.Clean on a
// rooted path, this never silently clamps an escape attempt to root: it
// tracks depth segment by segment and rejects the moment it would go
// negative, regardless of how many "../" prefixes p has.
func IsInside(root, p string) bool {
	rel := path.Clean(strings.TrimPrefix(p, "/"))
	if rel == "." {
		return true
	}
	depth := 0
	for _, seg := range strings.Split(rel, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			depth--
			if depth < 0 {
				return false
			}
		default:
			depth++
		}
	}
	return true
}
