package models

import (
	"errors"
	"fmt"
)

var (
	ErrPathAlreadySet     = errors.New("local path already assigned")
	ErrChildrenAlreadySet = errors.New("children already resolved")
	ErrNotContainer       = errors.New("entry is not a container")
	ErrUnknownIndex       = errors.New("unknown entry index")
)

// Tree stores entries in an arena indexed by a stable integer id
type Tree struct {
	entries []*Entry
	roots   []int
}

// NewTree creates an empty tree
func NewTree() *Tree {
	return &Tree{}
}

// Add stores a copy of the entry and returns its index
func (t *Tree) Add(e Entry) int {
	idx := len(t.entries)
	e.Index = idx
	e.Children = nil
	e.LocalPath = ""
	t.entries = append(t.entries, &e)
	return idx
}

// AddRoot stores the entry and marks it as a top-level item
func (t *Tree) AddRoot(e Entry) int {
	idx := t.Add(e)
	t.roots = append(t.roots, idx)
	return idx
}

// Get returns the entry at idx or nil
func (t *Tree) Get(idx int) *Entry {
	if idx < 0 || idx >= len(t.entries) {
		return nil
	}
	return t.entries[idx]
}

// Len returns the number of entries in the arena
func (t *Tree) Len() int {
	return len(t.entries)
}

// Roots returns top-level indexes in listing order
func (t *Tree) Roots() []int {
	return t.roots
}

// SetLocalPath assigns the local path of an entry exactly once
func (t *Tree) SetLocalPath(idx int, path string) error {
	e := t.Get(idx)
	if e == nil {
		return fmt.Errorf("%w: %d", ErrUnknownIndex, idx)
	}
	if e.LocalPath != "" {
		return fmt.Errorf("%w: %s", ErrPathAlreadySet, e.Title)
	}
	e.LocalPath = path
	return nil
}

// SetChildren attaches resolved children to a container
func (t *Tree) SetChildren(idx int, children []int) error {
	e := t.Get(idx)
	if e == nil {
		return fmt.Errorf("%w: %d", ErrUnknownIndex, idx)
	}
	if !e.IsContainer() {
		return fmt.Errorf("%w: %s", ErrNotContainer, e.Title)
	}
	if e.Children != nil {
		return fmt.Errorf("%w: %s", ErrChildrenAlreadySet, e.Title)
	}
	if children == nil {
		children = []int{}
	}
	e.Children = children
	return nil
}

// Collection returns the top-level entries
func (t *Tree) Collection() Collection {
	c := make(Collection, 0, len(t.roots))
	for _, idx := range t.roots {
		c = append(c, t.entries[idx])
	}
	return c
}

// ChildEntries returns the resolved children of a container
func (t *Tree) ChildEntries(e *Entry) Collection {
	c := make(Collection, 0, len(e.Children))
	for _, idx := range e.Children {
		c = append(c, t.entries[idx])
	}
	return c
}

// Walk visits entries depth-first in listing order, parents before children.
// Returning an error from fn stops the walk.
func (t *Tree) Walk(fn func(e *Entry, depth int) error) error {
	for _, idx := range t.roots {
		if err := t.walk(idx, 0, fn); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) walk(idx, depth int, fn func(e *Entry, depth int) error) error {
	e := t.entries[idx]
	if err := fn(e, depth); err != nil {
		return err
	}
	for _, child := range e.Children {
		if err := t.walk(child, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// Leaves returns every leaf entry in depth-first order
func (t *Tree) Leaves() Collection {
	var leaves Collection
	_ = t.Walk(func(e *Entry, _ int) error {
		if !e.IsContainer() {
			leaves = append(leaves, e)
		}
		return nil
	})
	return leaves
}
