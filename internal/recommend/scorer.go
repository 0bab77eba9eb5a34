// Package recommend ranks content items by relevance to a source item.
//
// The score of a candidate is a weighted linear combination:
//
//	score = Category * |categories ∩| +
//	        Type     * [same content type] +
//	        Tag      * |tags ∩| +
//	        Author   * [same author] +
//	        Likes    * likes + Views * views -
//	        Age      * age in days
//
// Taxonomy dominates; popularity and age only separate otherwise similar items.
package recommend

import (
	"sort"
	"time"
)

// Item is the scorer's view of a content item.
type Item struct {
	ID         uint
	TypeID     uint
	AuthorID   uint
	Categories []uint
	Tags       []string
	Likes      int
	Views      int
	Published  bool
	CreatedAt  time.Time
}

// Weights are the coefficients of the scoring formula.
type Weights struct {
	Category float64
	Type     float64
	Tag      float64
	Author   float64
	Likes    float64
	Views    float64
	Age      float64
}

// DefaultWeights is the production weighting.
var DefaultWeights = Weights{
	Category: 10,
	Type:     8,
	Tag:      3,
	Author:   5,
	Likes:    0.1,
	Views:    0.05,
	Age:      0.01,
}

// Scored pairs an item with its relevance score.
type Scored struct {
	Item  Item
	Score float64
}

// Scorer ranks candidates against a source item.
type Scorer struct {
	weights Weights
	now     func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithWeights overrides DefaultWeights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) { s.weights = w }
}

// WithClock sets the time source used to compute item age.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// NewScorer returns a Scorer using DefaultWeights and the wall clock.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{weights: DefaultWeights, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the relevance of cand to source.
func (s *Scorer) Score(source, cand Item) float64 {
	return s.score(source, newSets(source), cand, s.now())
}

func (s *Scorer) score(source Item, src sets, cand Item, now time.Time) float64 {
	w := s.weights
	score := w.Category*float64(src.sharedCategories(cand.Categories)) +
		w.Tag*float64(src.sharedTags(cand.Tags))

	if source.TypeID != 0 && cand.TypeID == source.TypeID {
		score += w.Type
	}
	if source.AuthorID != 0 && cand.AuthorID == source.AuthorID {
		score += w.Author
	}

	score += w.Likes*float64(cand.Likes) + w.Views*float64(cand.Views)

	if !cand.CreatedAt.IsZero() {
		ageDays := now.Sub(cand.CreatedAt).Hours() / 24
		if ageDays > 0 {
			score -= w.Age * ageDays
		}
	}
	return score
}

// Rank scores every eligible candidate and returns the best limit of them,
// highest score first. The source item and unpublished candidates are never
// returned. Equal scores fall back to newest first, then highest id.
func (s *Scorer) Rank(source Item, candidates []Item, limit int) []Scored {
	if limit <= 0 {
		return []Scored{}
	}

	src := newSets(source)
	now := s.now()
	seen := make(map[uint]struct{}, len(candidates))

	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == source.ID || !c.Published {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		scored = append(scored, Scored{Item: c, Score: s.score(source, src, c, now)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Item.CreatedAt.Equal(b.Item.CreatedAt) {
			return a.Item.CreatedAt.After(b.Item.CreatedAt)
		}
		return a.Item.ID > b.Item.ID
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// sets holds the source item's taxonomy for constant-time membership tests.
type sets struct {
	categories map[uint]struct{}
	tags       map[string]struct{}
}

func newSets(source Item) sets {
	s := sets{
		categories: make(map[uint]struct{}, len(source.Categories)),
		tags:       make(map[string]struct{}, len(source.Tags)),
	}
	for _, c := range source.Categories {
		s.categories[c] = struct{}{}
	}
	for _, t := range source.Tags {
		s.tags[t] = struct{}{}
	}
	return s
}

// sharedCategories counts distinct categories of cand also on the source.
func (s sets) sharedCategories(cand []uint) int {
	n := 0
	counted := make(map[uint]struct{}, len(cand))
	for _, c := range cand {
		if _, ok := s.categories[c]; !ok {
			continue
		}
		if _, dup := counted[c]; dup {
			continue
		}
		counted[c] = struct{}{}
		n++
	}
	return n
}

func (s sets) sharedTags(cand []string) int {
	n := 0
	counted := make(map[string]struct{}, len(cand))
	for _, t := range cand {
		if _, ok := s.tags[t]; !ok {
			continue
		}
		if _, dup := counted[t]; dup {
			continue
		}
		counted[t] = struct{}{}
		n++
	}
	return n
}
