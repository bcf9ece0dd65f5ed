// Package spatial implements an immutable bounding-box tree over point and
// polygon entities. The tree is bulk-loaded with sort-tile-recursive packing
// and answers coarse intersection queries; callers verify candidates with
// exact geometry afterwards. Built indexes are never mutated, so they are
// safe for any number of concurrent readers.
package spatial

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// maxFanout bounds the number of children or entries per node.
const maxFanout = 16

// Entry maps an entity's bounding region to its identifier. Degenerate
// bounds (points, zero-area polygons) are valid entries.
type Entry struct {
	ID    string
	Bound orb.Bound
}

type node struct {
	bound    orb.Bound
	children []*node
	entries  []Entry
}

// Index is a read-only bounding-volume tree. An empty index is valid and
// returns no results.
type Index struct {
	root *node
	size int
}

// Build constructs a balanced index over the given entries. The input slice
// is not retained. Entries with identical coordinates are fine; ties are
// broken by ID so identical inputs always produce an identical tree.
func Build(entries []Entry) *Index {
	idx := &Index{size: len(entries)}
	if len(entries) == 0 {
		return idx
	}

	leaves := packLeaves(append([]Entry(nil), entries...))
	for len(leaves) > 1 {
		leaves = packNodes(leaves)
	}
	idx.root = leaves[0]
	return idx
}

// packLeaves sorts entries into lon/lat tiles and packs them into leaf nodes
// of at most maxFanout entries each.
func packLeaves(entries []Entry) []*node {
	sortEntries(entries, 0)

	leafCount := (len(entries) + maxFanout - 1) / maxFanout
	sliceCount := int(math.Ceil(math.Sqrt(float64(leafCount))))
	sliceSize := sliceCount * maxFanout

	var leaves []*node
	for start := 0; start < len(entries); start += sliceSize {
		end := start + sliceSize
		if end > len(entries) {
			end = len(entries)
		}
		slab := entries[start:end]
		sortEntries(slab, 1)

		for i := 0; i < len(slab); i += maxFanout {
			j := i + maxFanout
			if j > len(slab) {
				j = len(slab)
			}
			leaf := &node{entries: slab[i:j:j]}
			leaf.bound = leaf.entries[0].Bound
			for _, e := range leaf.entries[1:] {
				leaf.bound = leaf.bound.Union(e.Bound)
			}
			leaves = append(leaves, leaf)
		}
	}
	return leaves
}

// packNodes groups child nodes into parents, one tree level at a time.
func packNodes(children []*node) []*node {
	sort.Slice(children, func(i, j int) bool {
		ci, cj := children[i].bound.Center(), children[j].bound.Center()
		if ci[0] != cj[0] {
			return ci[0] < cj[0]
		}
		return ci[1] < cj[1]
	})

	var parents []*node
	for i := 0; i < len(children); i += maxFanout {
		j := i + maxFanout
		if j > len(children) {
			j = len(children)
		}
		parent := &node{children: children[i:j:j]}
		parent.bound = parent.children[0].bound
		for _, c := range parent.children[1:] {
			parent.bound = parent.bound.Union(c.bound)
		}
		parents = append(parents, parent)
	}
	return parents
}

func sortEntries(entries []Entry, axis int) {
	sort.Slice(entries, func(i, j int) bool {
		ci, cj := entries[i].Bound.Center(), entries[j].Bound.Center()
		if ci[axis] != cj[axis] {
			return ci[axis] < cj[axis]
		}
		return entries[i].ID < entries[j].ID
	})
}

// QueryBound returns the IDs of all entries whose bound intersects b.
// This is the coarse candidate superset; exact verification is the
// caller's responsibility.
func (idx *Index) QueryBound(b orb.Bound) []string {
	if idx.root == nil {
		return nil
	}
	var ids []string
	idx.root.query(b, &ids)
	return ids
}

func (n *node) query(b orb.Bound, ids *[]string) {
	if !n.bound.Intersects(b) {
		return
	}
	for _, e := range n.entries {
		if e.Bound.Intersects(b) {
			*ids = append(*ids, e.ID)
		}
	}
	for _, c := range n.children {
		c.query(b, ids)
	}
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	return idx.size
}
