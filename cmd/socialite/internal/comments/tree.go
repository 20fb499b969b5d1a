// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package comments renders a post's flat comment list as a reply tree and
// runs the comment mutations of one post.
package comments

import "github.com/AleutianAI/socialite/cmd/socialite/internal/model"

// Node is one comment in render order with its nesting depth (0 for
// top-level comments).
type Node struct {
	Comment model.Comment
	Depth   int
}

// Tree is a parent → children adjacency map over a flat comment list.
//
// # Description
//
// Built once per fetched list in O(n). Siblings keep the order of the input
// slice. Comments whose parent id is not in the list are never reached from
// the root and so never render; the same holds for parent cycles, which
// cannot be reached from the root either. Comments without an id are
// skipped.
//
// The tree points into the slice it was built from. Mutating a comment's
// likes or text in that slice is visible through the tree; changing parent
// ids requires a rebuild.
type Tree struct {
	byID     map[string]*model.Comment
	children map[string][]*model.Comment
}

// BuildTree indexes comments by parent id.
func BuildTree(comments []model.Comment) *Tree {
	t := &Tree{
		byID:     make(map[string]*model.Comment, len(comments)),
		children: make(map[string][]*model.Comment),
	}
	for i := range comments {
		c := &comments[i]
		if c.ID == "" {
			continue
		}
		t.byID[c.ID] = c
		t.children[c.ParentID] = append(t.children[c.ParentID], c)
	}
	return t
}

// Children returns the direct replies of parentID ("" for top level).
func (t *Tree) Children(parentID string) []*model.Comment {
	return t.children[parentID]
}

// Get returns the comment with id.
func (t *Tree) Get(id string) (*model.Comment, bool) {
	c, ok := t.byID[id]
	return c, ok
}

// Walk visits the subtree under parentID depth-first, each reply right
// after its parent. depth is the depth given to parentID's children. Each
// comment is visited at most once, so a parent cycle ends the walk.
func (t *Tree) Walk(parentID string, depth int, visit func(Node)) {
	t.walk(parentID, depth, map[string]bool{parentID: true}, visit)
}

func (t *Tree) walk(parentID string, depth int, seen map[string]bool, visit func(Node)) {
	for _, c := range t.children[parentID] {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		visit(Node{Comment: *c, Depth: depth})
		t.walk(c.ID, depth+1, seen, visit)
	}
}

// Flatten returns every comment reachable from the top level in render
// order.
func (t *Tree) Flatten() []Node {
	nodes := make([]Node, 0, len(t.byID))
	t.Walk("", 0, func(n Node) {
		nodes = append(nodes, n)
	})
	return nodes
}

// Replies counts all descendants of id.
func (t *Tree) Replies(id string) int {
	n := 0
	t.Walk(id, 0, func(Node) { n++ })
	return n
}
