package model

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/hive2hive/h2h/internal/security"
)

// IndexDTO is the exported, gob-encodable mirror of an Index node. Index
// itself keeps its fields private (it is a domain type, not a wire
// format); ToDTO/FromDTO is the one place that crosses that boundary.
type IndexDTO struct {
	IsFolder   bool
	Name       string
	ParentID   PublicKeyID
	KeyPair    security.KeyPairDER
	MD5        [16]byte          // files only
	SharedWith map[string]bool   // folders only
}

// ProfileDTO is the wire form of a UserProfile (SPEC_FULL.md §3: gob in
// place of the dropped protobuf dependency).
type ProfileDTO struct {
	RootID        PublicKeyID
	Nodes         map[PublicKeyID]IndexDTO
	ProtectionKey security.KeyPairDER
	VersionKey    VersionKey
	BasedOnKey    VersionKey
}

func ToDTO(p *UserProfile) (ProfileDTO, error) {
	protKP, err := security.MarshalKeyPair(p.ProtectionKey)
	if err != nil {
		return ProfileDTO{}, fmt.Errorf("marshal protection key: %w", err)
	}

	dto := ProfileDTO{
		RootID:        p.Tree.Root.ID(),
		Nodes:         make(map[PublicKeyID]IndexDTO, len(p.Tree.nodes)),
		ProtectionKey: protKP,
		VersionKey:    p.VersionKey,
		BasedOnKey:    p.BasedOnKey,
	}

	for id, idx := range p.Tree.nodes {
		kp, err := security.MarshalKeyPair(idx.KeyPair())
		if err != nil {
			return ProfileDTO{}, fmt.Errorf("marshal key of node %q: %w", idx.Name(), err)
		}
		node := IndexDTO{Name: idx.Name(), ParentID: idx.ParentID(), KeyPair: kp}
		switch v := idx.(type) {
		case *FolderIndex:
			node.IsFolder = true
			node.SharedWith = v.SharedWith
		case *FileIndex:
			node.MD5 = v.MD5
		}
		dto.Nodes[id] = node
	}
	return dto, nil
}

func FromDTO(dto ProfileDTO) (*UserProfile, error) {
	protKP, err := security.UnmarshalKeyPair(dto.ProtectionKey)
	if err != nil {
		return nil, fmt.Errorf("unmarshal protection key: %w", err)
	}

	rootDTO, ok := dto.Nodes[dto.RootID]
	if !ok {
		return nil, fmt.Errorf("profile missing root node %q", dto.RootID)
	}
	rootKP, err := security.UnmarshalKeyPair(rootDTO.KeyPair)
	if err != nil {
		return nil, fmt.Errorf("unmarshal root key: %w", err)
	}
	root := NewFolderIndex(rootDTO.Name, rootDTO.ParentID, rootKP)
	if rootDTO.SharedWith != nil {
		root.SharedWith = rootDTO.SharedWith
	}
	tree := NewTree(root)

	for id, node := range dto.Nodes {
		if id == dto.RootID {
			continue
		}
		kp, err := security.UnmarshalKeyPair(node.KeyPair)
		if err != nil {
			return nil, fmt.Errorf("unmarshal key of node %q: %w", node.Name, err)
		}
		var idx Index
		if node.IsFolder {
			f := NewFolderIndex(node.Name, node.ParentID, kp)
			if node.SharedWith != nil {
				f.SharedWith = node.SharedWith
			}
			idx = f
		} else {
			idx = NewFileIndex(node.Name, node.ParentID, kp, node.MD5)
		}
		tree.nodes[id] = idx
	}

	// second pass: link each non-root node under its parent folder.
	for id, idx := range tree.nodes {
		if id == dto.RootID {
			continue
		}
		parent, ok := tree.nodes[idx.ParentID()]
		if !ok {
			return nil, fmt.Errorf("node %q references missing parent %q", idx.Name(), idx.ParentID())
		}
		folder, ok := parent.(*FolderIndex)
		if !ok {
			return nil, fmt.Errorf("node %q's parent %q is not a folder", idx.Name(), idx.ParentID())
		}
		folder.AddChild(idx)
	}

	return &UserProfile{
		Tree:          tree,
		ProtectionKey: protKP,
		VersionKey:    dto.VersionKey,
		BasedOnKey:    dto.BasedOnKey,
	}, nil
}

// Marshal gob-encodes p's DTO form.
func Marshal(p *UserProfile) ([]byte, error) {
	dto, err := ToDTO(p)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(dto); err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal reverses Marshal.
func Unmarshal(data []byte) (*UserProfile, error) {
	var dto ProfileDTO
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&dto); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return FromDTO(dto)
}

// SubtreeDTO is the wire form of a folder and everything beneath it,
// exchanged by the share process (spec.md §4.6 "share folder"): the
// recipient needs every descendant's keypair to decrypt that subtree's
// meta-files and chunks, so the whole subtree travels as one envelope.
type SubtreeDTO struct {
	RootID PublicKeyID
	Nodes  map[PublicKeyID]IndexDTO
}

// subtreeIDs collects root's id and every descendant's id.
func subtreeIDs(root Index, tree *Tree) map[PublicKeyID]bool {
	ids := map[PublicKeyID]bool{root.ID(): true}
	folder, ok := root.(*FolderIndex)
	if !ok {
		return ids
	}
	for _, child := range folder.Children() {
		for id := range subtreeIDs(child, tree) {
			ids[id] = true
		}
	}
	return ids
}

// ToSubtreeDTO packages root and its descendants for transfer to a new
// share participant.
func ToSubtreeDTO(tree *Tree, root *FolderIndex) (SubtreeDTO, error) {
	ids := subtreeIDs(root, tree)
	dto := SubtreeDTO{RootID: root.ID(), Nodes: make(map[PublicKeyID]IndexDTO, len(ids))}
	for id := range ids {
		idx, ok := tree.nodes[id]
		if !ok {
			continue
		}
		kp, err := security.MarshalKeyPair(idx.KeyPair())
		if err != nil {
			return SubtreeDTO{}, fmt.Errorf("marshal key of node %q: %w", idx.Name(), err)
		}
		node := IndexDTO{Name: idx.Name(), ParentID: idx.ParentID(), KeyPair: kp}
		switch v := idx.(type) {
		case *FolderIndex:
			node.IsFolder = true
			node.SharedWith = v.SharedWith
		case *FileIndex:
			node.MD5 = v.MD5
		}
		dto.Nodes[id] = node
	}
	return dto, nil
}

// FromSubtreeDTO rebuilds the subtree's nodes, linking children under
// their parent when the parent is also present in the envelope. The
// returned root's ParentID still names the sender's parent folder; the
// caller grafts it under whatever local placeholder the recipient uses.
func FromSubtreeDTO(dto SubtreeDTO) (*FolderIndex, map[PublicKeyID]Index, error) {
	rootDTO, ok := dto.Nodes[dto.RootID]
	if !ok {
		return nil, nil, fmt.Errorf("subtree missing root node %q", dto.RootID)
	}
	rootKP, err := security.UnmarshalKeyPair(rootDTO.KeyPair)
	if err != nil {
		return nil, nil, fmt.Errorf("unmarshal root key: %w", err)
	}
	root := NewFolderIndex(rootDTO.Name, rootDTO.ParentID, rootKP)
	if rootDTO.SharedWith != nil {
		root.SharedWith = rootDTO.SharedWith
	}

	nodes := map[PublicKeyID]Index{dto.RootID: root}
	for id, node := range dto.Nodes {
		if id == dto.RootID {
			continue
		}
		kp, err := security.UnmarshalKeyPair(node.KeyPair)
		if err != nil {
			return nil, nil, fmt.Errorf("unmarshal key of node %q: %w", node.Name, err)
		}
		if node.IsFolder {
			f := NewFolderIndex(node.Name, node.ParentID, kp)
			if node.SharedWith != nil {
				f.SharedWith = node.SharedWith
			}
			nodes[id] = f
		} else {
			nodes[id] = NewFileIndex(node.Name, node.ParentID, kp, node.MD5)
		}
	}
	for id, idx := range nodes {
		if id == dto.RootID {
			continue
		}
		if parent, ok := nodes[idx.ParentID()].(*FolderIndex); ok {
			parent.AddChild(idx)
		}
	}
	return root, nodes, nil
}

// MarshalSubtree gob-encodes a subtree rooted at root.
func MarshalSubtree(tree *Tree, root *FolderIndex) ([]byte, error) {
	dto, err := ToSubtreeDTO(tree, root)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(dto); err != nil {
		return nil, fmt.Errorf("encode subtree: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalSubtree reverses MarshalSubtree.
func UnmarshalSubtree(data []byte) (*FolderIndex, map[PublicKeyID]Index, error) {
	var dto SubtreeDTO
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&dto); err != nil {
		return nil, nil, fmt.Errorf("decode subtree: %w", err)
	}
	return FromSubtreeDTO(dto)
}

// MarshalMetaFile gob-encodes a MetaFile. Unlike UserProfile, MetaFile has
// no unexported fields, so it needs no DTO step: its RSA keys encode
// directly since math/big.Int implements the gob encoder interface.
func MarshalMetaFile(mf *MetaFile) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(mf); err != nil {
		return nil, fmt.Errorf("encode meta-file: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalMetaFile reverses MarshalMetaFile.
func UnmarshalMetaFile(data []byte) (*MetaFile, error) {
	var mf MetaFile
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&mf); err != nil {
		return nil, fmt.Errorf("decode meta-file: %w", err)
	}
	return &mf, nil
}
