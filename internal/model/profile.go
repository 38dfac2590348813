package model

import "github.com/hive2hive/h2h/internal/security"

// UserProfile is the per-user DHT object: the root of the file tree, the
// user's protection keypair (the default DHT write-ACL), and the
// version-chain pair enforcing SPEC_FULL.md §5's invariant that any two
// successful puts chain BasedOnKey to the prior VersionKey.
type UserProfile struct {
	Tree          *Tree
	ProtectionKey security.KeyPair
	VersionKey    VersionKey
	BasedOnKey    VersionKey
}

func NewUserProfile(root *FolderIndex, protectionKey security.KeyPair) *UserProfile {
	return &UserProfile{Tree: NewTree(root), ProtectionKey: protectionKey}
}

// Clone deep-copies the parts of the profile that a modifier mutates
// locally between Get and ReadyToPut, so piggy-backed readers never see a
// partial mutation (SPEC_FULL.md §8).
func (p *UserProfile) Clone() *UserProfile {
	clonedNodes := make(map[PublicKeyID]Index, len(p.Tree.nodes))
	var cloneFolder func(f *FolderIndex) *FolderIndex
	cloneFolder = func(f *FolderIndex) *FolderIndex {
		nf := &FolderIndex{
			name:       f.name,
			parentID:   f.parentID,
			keyPair:    f.keyPair,
			children:   make(map[PublicKeyID]Index, len(f.children)),
			SharedWith: make(map[string]bool, len(f.SharedWith)),
		}
		for k, v := range f.SharedWith {
			nf.SharedWith[k] = v
		}
		clonedNodes[nf.ID()] = nf
		for _, child := range f.children {
			switch c := child.(type) {
			case *FolderIndex:
				cc := cloneFolder(c)
				nf.children[cc.ID()] = cc
			case *FileIndex:
				cc := &FileIndex{name: c.name, parentID: c.parentID, keyPair: c.keyPair, MD5: c.MD5}
				nf.children[cc.ID()] = cc
				clonedNodes[cc.ID()] = cc
			}
		}
		return nf
	}

	newRoot := cloneFolder(p.Tree.Root)
	newTree := &Tree{Root: newRoot, nodes: clonedNodes}

	return &UserProfile{
		Tree:          newTree,
		ProtectionKey: p.ProtectionKey,
		VersionKey:    p.VersionKey,
		BasedOnKey:    p.BasedOnKey,
	}
}
