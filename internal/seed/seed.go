// Package seed fills a database with realistic demo data for development.
// Every write goes through the repositories so denormalized counters stay
// consistent with the rows they count.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/slug"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

// Options configure one seeding run.
type Options struct {
	Preset Preset
	// Clean removes all existing engagement data first.
	Clean bool
	// RandSeed makes a run reproducible. Zero picks a random seed.
	RandSeed int64
	// Now anchors generated timestamps; zero means time.Now.
	Now time.Time
}

// Summary counts what a run created.
type Summary struct {
	Users         int `json:"users"`
	Categories    int `json:"categories"`
	Contents      int `json:"contents"`
	Comments      int `json:"comments"`
	ContentLikes  int `json:"content_likes"`
	CommentLikes  int `json:"comment_likes"`
	Bookmarks     int `json:"bookmarks"`
	DraftContents int `json:"draft_contents"`
}

// Seeder creates users, content, comments and engagement rows.
type Seeder struct {
	db         *gorm.DB
	catalog    *Catalog
	faker      *gofakeit.Faker
	users      repository.UserRepository
	contents   repository.ContentRepository
	comments   repository.CommentRepository
	engagement repository.EngagementRepository
	taxonomy   repository.TaxonomyRepository
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, catalog *Catalog, randSeed int64) *Seeder {
	return &Seeder{
		db:         db,
		catalog:    catalog,
		faker:      gofakeit.New(randSeed),
		users:      repository.NewUserRepository(db),
		contents:   repository.NewContentRepository(db),
		comments:   repository.NewCommentRepository(db),
		engagement: repository.NewEngagementRepository(db),
		taxonomy:   repository.NewTaxonomyRepository(db),
	}
}

// Run seeds according to opts.
func (s *Seeder) Run(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	if opts.Clean {
		if err := s.Clean(ctx); err != nil {
			return sum, err
		}
	}
	if err := s.taxonomy.EnsureContentTypes(ctx); err != nil {
		return sum, fmt.Errorf("content types: %w", err)
	}
	typeIDs, err := s.contentTypeIDs(ctx)
	if err != nil {
		return sum, err
	}

	categories, err := s.seedCategories(ctx)
	if err != nil {
		return sum, err
	}
	sum.Categories = len(categories)

	users, err := s.seedUsers(ctx, opts.Preset.Users)
	if err != nil {
		return sum, err
	}
	sum.Users = len(users)

	p := opts.Preset
	for i := 0; i < p.Contents; i++ {
		author := users[s.faker.Number(0, len(users)-1)]
		content, err := s.seedContent(ctx, i, author, typeIDs, categories, p, now)
		if err != nil {
			return sum, err
		}
		sum.Contents++
		if !content.Published {
			sum.DraftContents++
			continue
		}

		comments, err := s.seedComments(ctx, content, users, p)
		if err != nil {
			return sum, err
		}
		sum.Comments += len(comments)

		for _, u := range users {
			if s.chance(p.LikeRatio) {
				if err := s.toggle(ctx, models.KindLike, models.TargetContent, u.ID, content.ID); err != nil {
					return sum, err
				}
				sum.ContentLikes++
			}
			if s.chance(p.BookmarkRatio) {
				if err := s.toggle(ctx, models.KindBookmark, models.TargetContent, u.ID, content.ID); err != nil {
					return sum, err
				}
				sum.Bookmarks++
			}
			for _, c := range comments {
				if s.chance(p.LikeRatio / 2) {
					if err := s.toggle(ctx, models.KindLike, models.TargetComment, u.ID, c.ID); err != nil {
						return sum, err
					}
					sum.CommentLikes++
				}
			}
		}
	}

	middleware.Logger.InfoContext(ctx, "seeding finished",
		slog.Int("users", sum.Users),
		slog.Int("contents", sum.Contents),
		slog.Int("comments", sum.Comments),
		slog.Int("content_likes", sum.ContentLikes),
		slog.Int("comment_likes", sum.CommentLikes),
		slog.Int("bookmarks", sum.Bookmarks))
	return sum, nil
}

// Clean deletes every user, content and engagement row. Dependents go first
// so it works without ON DELETE CASCADE.
func (s *Seeder) Clean(ctx context.Context) error {
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	steps := []interface{}{
		&models.CommentLike{},
		&models.ContentLike{},
		&models.Bookmark{},
		&models.Comment{},
		&models.ContentTag{},
	}
	for _, m := range steps {
		if err := db.Delete(m).Error; err != nil {
			return fmt.Errorf("clean %T: %w", m, err)
		}
	}
	if err := db.Exec("DELETE FROM content_categories").Error; err != nil {
		return fmt.Errorf("clean content_categories: %w", err)
	}
	for _, m := range []interface{}{&models.Content{}, &models.Category{}, &models.User{}} {
		if err := db.Delete(m).Error; err != nil {
			return fmt.Errorf("clean %T: %w", m, err)
		}
	}
	return nil
}

func (s *Seeder) chance(ratio float64) bool {
	return ratio > 0 && s.faker.Float64() < ratio
}

func (s *Seeder) contentTypeIDs(ctx context.Context) ([]uint, error) {
	ids := make([]uint, 0, len(models.BuiltinContentTypes))
	for _, t := range models.BuiltinContentTypes {
		ct, err := s.taxonomy.GetTypeByName(ctx, t.Name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, ct.ID)
	}
	return ids, nil
}

func (s *Seeder) seedCategories(ctx context.Context) ([]models.Category, error) {
	out := make([]models.Category, 0, len(s.catalog.Categories))
	for _, cs := range s.catalog.Categories {
		cat := models.Category{Slug: cs.Slug, Name: cs.Name}
		if err := s.taxonomy.UpsertCategory(ctx, &cat); err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, nil
}

func (s *Seeder) seedUsers(ctx context.Context, n int) ([]*models.User, error) {
	// One hash serves every user; they share DefaultPassword.
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		name := strings.ToLower(s.faker.Username())
		if len(name) > 48 {
			name = name[:48]
		}
		u := &models.User{
			Username: fmt.Sprintf("%s_%d", name, i+1),
			Email:    fmt.Sprintf("%s_%d@seed.inkwell.local", name, i+1),
			Password: string(hashed),
			Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", s.faker.UUID()),
		}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *Seeder) seedContent(
	ctx context.Context, i int, author *models.User, typeIDs []uint,
	categories []models.Category, p Preset, now time.Time,
) (*models.Content, error) {
	title := strings.TrimSuffix(s.faker.Sentence(s.faker.Number(3, 8)), ".")
	maxDays := p.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	created := now.Add(-time.Duration(s.faker.Number(0, maxDays*24*60)) * time.Minute)

	content := &models.Content{
		Title:         title,
		Slug:          fmt.Sprintf("%s-%d", slug.Generate(title, now), i+1),
		Body:          s.faker.Paragraph(s.faker.Number(2, 5), s.faker.Number(3, 6), 12, "\n\n"),
		ContentTypeID: typeIDs[s.faker.Number(0, len(typeIDs)-1)],
		AuthorID:      author.ID,
		AuthorName:    author.Username,
		AuthorAvatar:  author.Avatar,
		Published:     !s.chance(p.DraftRatio),
		Featured:      s.chance(0.1),
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	if len(categories) > 0 {
		for _, idx := range s.pick(len(categories), s.faker.Number(1, min(3, len(categories)))) {
			content.Categories = append(content.Categories, categories[idx])
		}
	}
	if len(s.catalog.Tags) > 0 {
		for _, idx := range s.pick(len(s.catalog.Tags), s.faker.Number(0, min(4, len(s.catalog.Tags)))) {
			content.Tags = append(content.Tags, models.ContentTag{Tag: s.catalog.Tags[idx]})
		}
	}

	if err := s.contents.Create(ctx, content); err != nil {
		return nil, err
	}
	return content, nil
}

// pick returns k distinct indexes below n.
func (s *Seeder) pick(n, k int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := s.faker.Number(0, i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}

func (s *Seeder) seedComments(ctx context.Context, content *models.Content, users []*models.User, p Preset) ([]*models.Comment, error) {
	n := p.CommentsPerContent
	if n == 0 {
		return nil, nil
	}
	n = s.faker.Number(n/2, n)

	comments := make([]*models.Comment, 0, n)
	at := content.CreatedAt
	for i := 0; i < n; i++ {
		author := users[s.faker.Number(0, len(users)-1)]
		at = at.Add(time.Duration(s.faker.Number(1, 600)) * time.Minute)
		c := &models.Comment{
			ContentID:    content.ID,
			UserID:       author.ID,
			AuthorName:   author.Username,
			AuthorAvatar: author.Avatar,
			Body:         s.faker.Sentence(s.faker.Number(4, 20)),
			Status:       models.CommentStatusApproved,
			CreatedAt:    at,
			UpdatedAt:    at,
		}
		if len(comments) > 0 && s.chance(p.ReplyRatio) {
			parent := comments[s.faker.Number(0, len(comments)-1)]
			c.ParentID = &parent.ID
		}
		if err := s.comments.Create(ctx, c); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, nil
}

func (s *Seeder) toggle(ctx context.Context, kind models.EngagementKind, target models.TargetType, userID, targetID uint) error {
	active, err := s.engagement.Toggle(ctx, kind, target, userID, targetID)
	if err != nil {
		return err
	}
	if !active {
		return fmt.Errorf("seed toggle %s/%s %d on %d unexpectedly removed a row", kind, target, userID, targetID)
	}
	return nil
}
