package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/fjod/cats-den/internal/domain"
)

//go:embed fallback.json
var fallbackJSON []byte

// Fallback is the bundled content served when the content system is not
// configured or cannot be reached.
type Fallback struct {
	breeds       []domain.Breed
	kittens      []domain.Kitten
	testimonials []domain.Testimonial
	posts        []domain.BlogPost
}

type fallbackFile struct {
	Breeds  []domain.Breed `json:"breeds"`
	Kittens []struct {
		domain.Kitten
		BreedID string `json:"breedId"`
	} `json:"kittens"`
	Testimonials []domain.Testimonial `json:"testimonials"`
	BlogPosts    []domain.BlogPost    `json:"blogPosts"`
}

func LoadFallback() (*Fallback, error) {
	return parseFallback(fallbackJSON)
}

func parseFallback(data []byte) (*Fallback, error) {
	var file fallbackFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode fallback content: %w", err)
	}

	byID := make(map[string]domain.Breed, len(file.Breeds))
	for _, b := range file.Breeds {
		byID[b.ID] = b
	}

	f := &Fallback{
		breeds:       file.Breeds,
		testimonials: file.Testimonials,
		posts:        file.BlogPosts,
	}
	for _, k := range file.Kittens {
		breed, ok := byID[k.BreedID]
		if !ok {
			return nil, fmt.Errorf("fallback kitten %s references unknown breed %q", k.ID, k.BreedID)
		}
		kitten := k.Kitten
		kitten.Breed = breed
		f.kittens = append(f.kittens, kitten)
	}
	return f, nil
}

func (f *Fallback) Breeds() []domain.Breed {
	return slices.Clone(f.breeds)
}

func (f *Fallback) BreedBySlug(slug string) *domain.Breed {
	for _, b := range f.breeds {
		if b.Slug == slug {
			return &b
		}
	}
	return nil
}

func (f *Fallback) Kittens(filters domain.KittenFilters, page, pageSize int) domain.Page[domain.Kitten] {
	return paginate(filterKittens(f.kittens, filters), page, pageSize)
}

func (f *Fallback) FeaturedKittens(limit int) []domain.Kitten {
	featured := true
	return limitTo(filterKittens(f.kittens, domain.KittenFilters{Featured: &featured}), limit)
}

func (f *Fallback) KittenBySlug(slug string) *domain.Kitten {
	for _, k := range f.kittens {
		if k.Slug == slug {
			return &k
		}
	}
	return nil
}

func (f *Fallback) KittenByID(id string) *domain.Kitten {
	for _, k := range f.kittens {
		if k.ID == id {
			return &k
		}
	}
	return nil
}

func (f *Fallback) KittensByBreed(breedID string, limit int) []domain.Kitten {
	var out []domain.Kitten
	for _, k := range f.kittens {
		if k.Breed.ID == breedID {
			out = append(out, k)
		}
	}
	return limitTo(out, limit)
}

func (f *Fallback) BlogPosts(page, pageSize int) domain.Page[domain.BlogPost] {
	return paginate(f.posts, page, pageSize)
}

func (f *Fallback) BlogPostBySlug(slug string) *domain.BlogPost {
	for _, p := range f.posts {
		if p.Slug == slug {
			return &p
		}
	}
	return nil
}

func (f *Fallback) Testimonials(limit int) []domain.Testimonial {
	return limitTo(f.testimonials, limit)
}

// PageBySlug synthesizes an empty page titled after its slug.
func (f *Fallback) PageBySlug(slug string) *domain.ContentPage {
	title := strings.ReplaceAll(slug, "-", " ")
	if title != "" {
		title = strings.ToUpper(title[:1]) + title[1:]
	}
	return &domain.ContentPage{ID: slug, Title: title, Slug: slug}
}

func (f *Fallback) Homepage() domain.Homepage {
	return domain.Homepage{
		FeaturedKittens: f.FeaturedKittens(6),
		Breeds:          f.Breeds(),
		Testimonials:    f.Testimonials(3),
	}
}

func filterKittens(kittens []domain.Kitten, filters domain.KittenFilters) []domain.Kitten {
	search := strings.ToLower(strings.TrimSpace(filters.Search))
	out := make([]domain.Kitten, 0, len(kittens))
	for _, k := range kittens {
		switch {
		case filters.Breed != "" && k.Breed.Slug != filters.Breed:
		case filters.Gender != "" && k.Gender != filters.Gender:
		case filters.Availability != "" && k.Availability != filters.Availability:
		case filters.MinPrice > 0 && k.Price < filters.MinPrice:
		case filters.MaxPrice > 0 && k.Price > filters.MaxPrice:
		case filters.Featured != nil && k.Featured != *filters.Featured:
		case search != "" &&
			!strings.Contains(strings.ToLower(k.Name), search) &&
			!strings.Contains(strings.ToLower(k.Breed.Name), search) &&
			!strings.Contains(strings.ToLower(k.Description), search):
		default:
			out = append(out, k)
		}
	}
	return out
}

func paginate[T any](items []T, page, pageSize int) domain.Page[T] {
	start := (page - 1) * pageSize
	if start > len(items) {
		start = len(items)
	}
	end := min(start+pageSize, len(items))
	return domain.NewPage(slices.Clone(items[start:end]), len(items), page, pageSize)
}

func limitTo[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
