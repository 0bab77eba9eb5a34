// Package thread turns flat comment rows into a nested reply forest.
package thread

import (
	"sort"

	"inkwell/internal/models"
)

// Build nests comments into a forest. Top-level comments come newest first,
// replies at every depth oldest first, and equal timestamps fall back to id.
//
// Rows whose parent is not in the input are dropped along with their
// descendants, so a thread never shows a reply without its ancestors.
//
// liked marks the comments the viewer has liked. A nil map means there is no
// viewer and IsLiked stays unset on every node.
func Build(comments []*models.Comment, liked map[uint]bool) []*models.ThreadNode {
	nodes := make(map[uint]*models.ThreadNode, len(comments))
	for _, c := range comments {
		if c == nil {
			continue
		}
		nodes[c.ID] = newNode(c, liked)
	}

	children := make(map[uint][]*models.Comment, len(comments))
	var roots []*models.Comment
	for _, c := range comments {
		if c == nil {
			continue
		}
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		if _, ok := nodes[*c.ParentID]; ok && *c.ParentID != c.ID {
			children[*c.ParentID] = append(children[*c.ParentID], c)
		}
	}

	sort.Slice(roots, func(i, j int) bool { return newerFirst(roots[i], roots[j]) })

	forest := make([]*models.ThreadNode, 0, len(roots))
	for _, r := range roots {
		forest = append(forest, attach(nodes, children, r.ID, map[uint]bool{}))
	}
	return forest
}

// attach fills in the replies of id depth first. visited guards against a
// parent cycle in corrupted data.
func attach(nodes map[uint]*models.ThreadNode, children map[uint][]*models.Comment, id uint, visited map[uint]bool) *models.ThreadNode {
	node := nodes[id]
	visited[id] = true

	kids := children[id]
	sort.Slice(kids, func(i, j int) bool { return olderFirst(kids[i], kids[j]) })
	for _, k := range kids {
		if visited[k.ID] {
			continue
		}
		node.Replies = append(node.Replies, attach(nodes, children, k.ID, visited))
	}
	return node
}

func newNode(c *models.Comment, liked map[uint]bool) *models.ThreadNode {
	n := &models.ThreadNode{
		ID:           c.ID,
		UserID:       c.UserID,
		Body:         c.Body,
		AuthorName:   c.AuthorName,
		AuthorAvatar: c.AuthorAvatar,
		CreatedAt:    c.CreatedAt,
		Likes:        c.Likes,
		Replies:      []*models.ThreadNode{},
	}
	if liked != nil {
		isLiked := liked[c.ID]
		n.IsLiked = &isLiked
	}
	return n
}

func newerFirst(a, b *models.Comment) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func olderFirst(a, b *models.Comment) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// IDs returns the ids of every comment in rows, for the bulk like lookup.
func IDs(rows []*models.Comment) []uint {
	ids := make([]uint, 0, len(rows))
	for _, c := range rows {
		if c != nil {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// LikedSet turns a list of liked ids into the lookup Build expects.
func LikedSet(ids []uint) map[uint]bool {
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// Count returns the number of nodes in the forest.
func Count(forest []*models.ThreadNode) int {
	n := 0
	for _, node := range forest {
		n += 1 + Count(node.Replies)
	}
	return n
}
