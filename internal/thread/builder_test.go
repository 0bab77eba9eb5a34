package thread

import (
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func comment(id uint, parent *uint, minutes int) *models.Comment {
	return &models.Comment{
		ID:        id,
		ParentID:  parent,
		Body:      "c",
		Status:    models.CommentStatusApproved,
		CreatedAt: base.Add(time.Duration(minutes) * time.Minute),
	}
}

func ptr(id uint) *uint { return &id }

func nodeIDs(nodes []*models.ThreadNode) []uint {
	out := make([]uint, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestBuild_OrderingAtEveryDepth(t *testing.T) {
	rows := []*models.Comment{
		comment(1, nil, 0),
		comment(2, nil, 10),
		comment(3, nil, 5),
		comment(4, ptr(1), 30),
		comment(5, ptr(1), 20),
		comment(6, ptr(5), 40),
		comment(7, ptr(5), 35),
	}

	forest := Build(rows, nil)
	require.Len(t, forest, 3)
	assert.Equal(t, []uint{2, 3, 1}, nodeIDs(forest))

	first := forest[2]
	assert.Equal(t, []uint{5, 4}, nodeIDs(first.Replies))
	assert.Equal(t, []uint{7, 6}, nodeIDs(first.Replies[0].Replies))
	assert.Equal(t, 7, Count(forest))
}

func TestBuild_TiesFallBackToID(t *testing.T) {
	rows := []*models.Comment{
		comment(10, nil, 0),
		comment(11, nil, 0),
		comment(12, ptr(10), 1),
		comment(13, ptr(10), 1),
	}
	forest := Build(rows, nil)
	assert.Equal(t, []uint{11, 10}, nodeIDs(forest))
	assert.Equal(t, []uint{12, 13}, nodeIDs(forest[1].Replies))
}

func TestBuild_DropsRowsWithMissingParent(t *testing.T) {
	rows := []*models.Comment{
		comment(1, nil, 0),
		comment(2, ptr(99), 1),
		comment(3, ptr(2), 2),
	}
	forest := Build(rows, nil)
	assert.Equal(t, []uint{1}, nodeIDs(forest))
	assert.Equal(t, 1, Count(forest))
}

func TestBuild_LeavesHaveEmptyReplies(t *testing.T) {
	forest := Build([]*models.Comment{comment(1, nil, 0)}, nil)
	require.Len(t, forest, 1)
	assert.NotNil(t, forest[0].Replies)
	assert.Empty(t, forest[0].Replies)

	raw, err := json.Marshal(forest)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"replies":[]`)
	assert.NotContains(t, string(raw), "is_liked")
}

func TestBuild_ViewerLikes(t *testing.T) {
	rows := []*models.Comment{comment(1, nil, 0), comment(2, ptr(1), 1)}

	forest := Build(rows, LikedSet([]uint{2}))
	require.NotNil(t, forest[0].IsLiked)
	assert.False(t, *forest[0].IsLiked)
	require.NotNil(t, forest[0].Replies[0].IsLiked)
	assert.True(t, *forest[0].Replies[0].IsLiked)

	// a viewer who liked nothing still gets explicit false values
	forest = Build(rows, LikedSet(nil))
	require.NotNil(t, forest[0].IsLiked)
	assert.False(t, *forest[0].IsLiked)
}

func TestBuild_EmptyInput(t *testing.T) {
	forest := Build(nil, nil)
	assert.NotNil(t, forest)
	assert.Empty(t, forest)
}

func TestBuild_SurvivesParentCycle(t *testing.T) {
	rows := []*models.Comment{
		comment(1, nil, 0),
		comment(2, ptr(3), 1),
		comment(3, ptr(2), 2),
	}
	forest := Build(rows, nil)
	assert.Equal(t, []uint{1}, nodeIDs(forest))
}

func TestIDs(t *testing.T) {
	assert.Equal(t, []uint{1, 2}, IDs([]*models.Comment{comment(1, nil, 0), nil, comment(2, nil, 0)}))
}
