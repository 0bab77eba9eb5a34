package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Built-in content type names.
const (
	ContentTypeArticle = "article"
	ContentTypeStory   = "story"
	ContentTypePoetry  = "poetry"
	ContentTypeAudio   = "audio"
	ContentTypeVideo   = "video"
	ContentTypePodcast = "podcast"
)

// BuiltinContentTypes lists the content types every installation ships with.
var BuiltinContentTypes = []ContentType{
	{Name: ContentTypeArticle, Label: "Article"},
	{Name: ContentTypeStory, Label: "Story"},
	{Name: ContentTypePoetry, Label: "Poetry"},
	{Name: ContentTypeAudio, Label: "Audio"},
	{Name: ContentTypeVideo, Label: "Video"},
	{Name: ContentTypePodcast, Label: "Podcast"},
}

// ContentType classifies a content item (article, story, ...).
type ContentType struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"uniqueIndex;size:32;not null" json:"name"`
	Label string `gorm:"size:64;not null" json:"label"`
}

// Category is an editorial taxonomy node content items are filed under.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;size:140;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContentTag is one free-text tag attached to a content item.
// Tags are stored lower-cased; (content_id, tag) is unique.
type ContentTag struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	ContentID uint   `gorm:"not null;uniqueIndex:idx_content_tags_content_tag" json:"-"`
	Tag       string `gorm:"size:64;not null;uniqueIndex:idx_content_tags_content_tag;index" json:"-"`
}

// MarshalJSON renders a tag as its bare string.
func (t ContentTag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Tag)
}

// UnmarshalJSON reads a tag back from its bare string.
func (t *ContentTag) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &t.Tag)
}

// Content is a published (or draft) item in the feed.
//
// LikesCount, CommentsCount and BookmarksCount mirror the number of
// relationship rows referencing this item and are only ever changed in the
// same transaction as the row they count.
type Content struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	Title          string       `gorm:"size:200;not null" json:"title"`
	Slug           string       `gorm:"uniqueIndex;size:255;not null" json:"slug"`
	Body           string       `gorm:"type:text;not null" json:"body"`
	ContentTypeID  uint         `gorm:"not null;index" json:"content_type_id"`
	ContentType    ContentType  `gorm:"foreignKey:ContentTypeID" json:"content_type"`
	Categories     []Category   `gorm:"many2many:content_categories;" json:"categories"`
	Tags           []ContentTag `gorm:"foreignKey:ContentID" json:"tags" swaggertype:"array,string"`
	AuthorID       uint         `gorm:"not null;index" json:"author_id"`
	AuthorName     string       `gorm:"size:64" json:"author_name"`
	AuthorAvatar   string       `json:"author_avatar"`
	Published      bool         `gorm:"not null;default:false;index" json:"published"`
	Featured       bool         `gorm:"not null;default:false" json:"featured"`
	ViewCount      int          `gorm:"not null;default:0" json:"view_count"`
	LikesCount     int          `gorm:"not null;default:0" json:"likes_count"`
	CommentsCount  int          `gorm:"not null;default:0" json:"comments_count"`
	BookmarksCount int          `gorm:"not null;default:0" json:"bookmarks_count"`
	CreatedAt      time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// MarshalJSON renders absent categories and tags as empty lists.
func (c Content) MarshalJSON() ([]byte, error) {
	type plain Content
	out := plain(c)
	if out.Categories == nil {
		out.Categories = []Category{}
	}
	if out.Tags == nil {
		out.Tags = []ContentTag{}
	}
	return json.Marshal(out)
}

// TagNames returns the plain tag strings.
func (c *Content) TagNames() []string {
	out := make([]string, 0, len(c.Tags))
	for _, t := range c.Tags {
		out = append(out, t.Tag)
	}
	return out
}

// CategoryIDs returns the ids of the categories the item is filed under.
func (c *Content) CategoryIDs() []uint {
	out := make([]uint, 0, len(c.Categories))
	for _, cat := range c.Categories {
		out = append(out, cat.ID)
	}
	return out
}
