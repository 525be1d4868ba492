package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fjod/cats-den/internal/cache"
	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/logger"
	"github.com/fjod/cats-den/internal/telemetry"
)

const (
	DefaultKittenPageSize = 12
	DefaultBlogPageSize   = 10
	MaxPageSize           = 100

	keyPrefix = "catalog:"
)

var ErrNotFound = errors.New("content not found")

// Content models as named by the content system's webhooks.
const (
	ModelKitten      = "kitten"
	ModelBreed       = "breed"
	ModelBlogPost    = "blog_post"
	ModelPage        = "page"
	ModelTestimonial = "testimonial"
	ModelUpload      = "upload"
	modelHome        = "home"
)

// Querier runs a GraphQL query against the content system.
type Querier interface {
	Query(ctx context.Context, query string, variables map[string]any, out any) error
}

// Service reads storefront content. Reads never fail because of the content
// system: any upstream error is logged and answered from the fallback set.
type Service struct {
	remote   Querier
	cache    cache.Cache
	fallback *Fallback
	sfg      singleflight.Group
	log      *slog.Logger
	metrics  *telemetry.Metrics
}

type Option func(*Service)

func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService builds a catalog service. A nil remote serves only fallback content.
func NewService(remote Querier, fallback *Fallback, opts ...Option) *Service {
	s := &Service{remote: remote, fallback: fallback}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrDefault(s.log)
	return s
}

func (s *Service) UsesFallbackOnly() bool {
	return s.remote == nil
}

func cacheKey(model string, parts ...any) string {
	var b strings.Builder
	b.WriteString(keyPrefix)
	b.WriteString(model)
	for _, p := range parts {
		fmt.Fprintf(&b, ":%v", p)
	}
	return b.String()
}

// read serves key from cache, then from the remote behind singleflight, and
// finally from local when the remote fails.
func read[T any](ctx context.Context, s *Service, op, key string, remote func(context.Context) (T, error), local func() T) T {
	if s.remote == nil {
		return local()
	}

	if s.cache != nil {
		data, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			var v T
			if err := json.Unmarshal(data, &v); err == nil {
				return v
			}
			s.log.WarnContext(ctx, "discarding undecodable cache entry", "key", key)
		case !errors.Is(err, cache.ErrCacheMiss):
			s.log.WarnContext(ctx, "catalog cache get failed", "key", key, "error", err)
		}
	}

	v, err, _ := s.sfg.Do(key, func() (any, error) {
		v, err := remote(ctx)
		if err != nil {
			return nil, err
		}
		s.store(key, v)
		return v, nil
	})
	if err != nil {
		s.log.WarnContext(ctx, "content service unavailable, serving fallback", "operation", op, "error", err)
		s.metrics.CatalogFallback(op)
		return local()
	}
	return v.(T)
}

func (s *Service) store(key string, v any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := s.cache.Set(ctx, key, data); err != nil {
			s.log.Warn("catalog cache set failed", "key", key, "error", err)
		}
	}()
}

// Invalidate drops cached responses that embed the given content model.
// Unknown models and uploads clear the whole catalog cache.
func (s *Service) Invalidate(ctx context.Context, model string) error {
	if s.cache == nil {
		return nil
	}
	var models []string
	switch model {
	case ModelKitten, ModelTestimonial:
		models = []string{model, modelHome}
	case ModelBreed:
		models = []string{ModelBreed, ModelKitten, modelHome}
	case ModelBlogPost, ModelPage:
		models = []string{model}
	default:
		return s.cache.DeletePrefix(ctx, keyPrefix)
	}
	for _, m := range models {
		if err := s.cache.DeletePrefix(ctx, cacheKey(m)+":"); err != nil {
			return fmt.Errorf("invalidate %s: %w", m, err)
		}
	}
	return nil
}

func normalizePage(page, pageSize, defaultSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultSize
	}
	return page, min(pageSize, MaxPageSize)
}

func found[T any](v *T) (*T, error) {
	if v == nil {
		return nil, ErrNotFound
	}
	return v, nil
}

func (s *Service) Breeds(ctx context.Context) []domain.Breed {
	return read(ctx, s, "breeds", cacheKey(ModelBreed, "all"),
		func(ctx context.Context) ([]domain.Breed, error) {
			var resp struct {
				AllBreeds []domain.Breed `json:"allBreeds"`
			}
			if err := s.remote.Query(ctx, queryAllBreeds, nil, &resp); err != nil {
				return nil, err
			}
			return resp.AllBreeds, nil
		},
		s.fallback.Breeds,
	)
}

func (s *Service) BreedBySlug(ctx context.Context, slug string) (*domain.Breed, error) {
	return found(read(ctx, s, "breed", cacheKey(ModelBreed, "slug", slug),
		func(ctx context.Context) (*domain.Breed, error) {
			var resp struct {
				Breed *domain.Breed `json:"breed"`
			}
			err := s.remote.Query(ctx, queryBreedBySlug, map[string]any{"slug": slug}, &resp)
			return resp.Breed, err
		},
		func() *domain.Breed { return s.fallback.BreedBySlug(slug) },
	))
}

func (s *Service) Kittens(ctx context.Context, filters domain.KittenFilters, page, pageSize int) domain.Page[domain.Kitten] {
	page, pageSize = normalizePage(page, pageSize, DefaultKittenPageSize)
	filterKey, _ := json.Marshal(filters)

	return read(ctx, s, "kittens", cacheKey(ModelKitten, "list", page, pageSize, string(filterKey)),
		func(ctx context.Context) (domain.Page[domain.Kitten], error) {
			filter := map[string]any{}
			if filters.Breed != "" {
				breed, err := s.BreedBySlug(ctx, filters.Breed)
				if err != nil {
					return domain.NewPage[domain.Kitten](nil, 0, page, pageSize), nil
				}
				filter["breed"] = map[string]any{"eq": breed.ID}
			}
			if filters.Gender != "" {
				filter["gender"] = map[string]any{"eq": filters.Gender}
			}
			if filters.Availability != "" {
				filter["availability"] = map[string]any{"eq": filters.Availability}
			}
			if filters.Featured != nil {
				filter["featured"] = map[string]any{"eq": *filters.Featured}
			}
			price := map[string]any{}
			if filters.MinPrice > 0 {
				price["gte"] = filters.MinPrice
			}
			if filters.MaxPrice > 0 {
				price["lte"] = filters.MaxPrice
			}
			if len(price) > 0 {
				filter["price"] = price
			}
			if search := strings.TrimSpace(filters.Search); search != "" {
				filter["name"] = map[string]any{"matches": map[string]any{"pattern": search, "caseSensitive": false}}
			}

			vars := map[string]any{"first": pageSize, "skip": (page - 1) * pageSize}
			if len(filter) > 0 {
				vars["filter"] = filter
			}
			var resp struct {
				AllKittens []cmsKitten `json:"allKittens"`
				Meta       countMeta   `json:"_allKittensMeta"`
			}
			if err := s.remote.Query(ctx, queryAllKittens, vars, &resp); err != nil {
				return domain.Page[domain.Kitten]{}, err
			}
			return domain.NewPage(kittensToDomain(resp.AllKittens), resp.Meta.Count, page, pageSize), nil
		},
		func() domain.Page[domain.Kitten] { return s.fallback.Kittens(filters, page, pageSize) },
	)
}

func (s *Service) FeaturedKittens(ctx context.Context, limit int) []domain.Kitten {
	if limit < 1 {
		limit = 6
	}
	return read(ctx, s, "featured_kittens", cacheKey(ModelKitten, "featured", limit),
		func(ctx context.Context) ([]domain.Kitten, error) {
			var resp struct {
				AllKittens []cmsKitten `json:"allKittens"`
			}
			if err := s.remote.Query(ctx, queryFeaturedKittens, map[string]any{"first": limit}, &resp); err != nil {
				return nil, err
			}
			return kittensToDomain(resp.AllKittens), nil
		},
		func() []domain.Kitten { return s.fallback.FeaturedKittens(limit) },
	)
}

func (s *Service) kitten(ctx context.Context, op, key, query string, vars map[string]any, local func() *domain.Kitten) (*domain.Kitten, error) {
	return found(read(ctx, s, op, key,
		func(ctx context.Context) (*domain.Kitten, error) {
			var resp struct {
				Kitten *cmsKitten `json:"kitten"`
			}
			if err := s.remote.Query(ctx, query, vars, &resp); err != nil {
				return nil, err
			}
			if resp.Kitten == nil {
				return nil, nil
			}
			k := resp.Kitten.toDomain()
			return &k, nil
		},
		local,
	))
}

func (s *Service) KittenBySlug(ctx context.Context, slug string) (*domain.Kitten, error) {
	return s.kitten(ctx, "kitten", cacheKey(ModelKitten, "slug", slug), queryKittenBySlug,
		map[string]any{"slug": slug},
		func() *domain.Kitten { return s.fallback.KittenBySlug(slug) })
}

func (s *Service) KittenByID(ctx context.Context, id string) (*domain.Kitten, error) {
	return s.kitten(ctx, "kitten", cacheKey(ModelKitten, "id", id), queryKittenByID,
		map[string]any{"id": id},
		func() *domain.Kitten { return s.fallback.KittenByID(id) })
}

func (s *Service) KittensByBreed(ctx context.Context, breedID string, limit int) []domain.Kitten {
	if limit < 1 {
		limit = 6
	}
	return read(ctx, s, "kittens_by_breed", cacheKey(ModelKitten, "breed", breedID, limit),
		func(ctx context.Context) ([]domain.Kitten, error) {
			var resp struct {
				AllKittens []cmsKitten `json:"allKittens"`
			}
			vars := map[string]any{"breedId": breedID, "first": limit}
			if err := s.remote.Query(ctx, queryKittensByBreed, vars, &resp); err != nil {
				return nil, err
			}
			return kittensToDomain(resp.AllKittens), nil
		},
		func() []domain.Kitten { return s.fallback.KittensByBreed(breedID, limit) },
	)
}

func (s *Service) BlogPosts(ctx context.Context, page, pageSize int) domain.Page[domain.BlogPost] {
	page, pageSize = normalizePage(page, pageSize, DefaultBlogPageSize)
	return read(ctx, s, "blog_posts", cacheKey(ModelBlogPost, "list", page, pageSize),
		func(ctx context.Context) (domain.Page[domain.BlogPost], error) {
			var resp struct {
				AllBlogPosts []cmsBlogPost `json:"allBlogPosts"`
				Meta         countMeta     `json:"_allBlogPostsMeta"`
			}
			vars := map[string]any{"first": pageSize, "skip": (page - 1) * pageSize}
			if err := s.remote.Query(ctx, queryAllBlogPosts, vars, &resp); err != nil {
				return domain.Page[domain.BlogPost]{}, err
			}
			posts := make([]domain.BlogPost, 0, len(resp.AllBlogPosts))
			for _, p := range resp.AllBlogPosts {
				posts = append(posts, p.toDomain())
			}
			return domain.NewPage(posts, resp.Meta.Count, page, pageSize), nil
		},
		func() domain.Page[domain.BlogPost] { return s.fallback.BlogPosts(page, pageSize) },
	)
}

func (s *Service) BlogPostBySlug(ctx context.Context, slug string) (*domain.BlogPost, error) {
	return found(read(ctx, s, "blog_post", cacheKey(ModelBlogPost, "slug", slug),
		func(ctx context.Context) (*domain.BlogPost, error) {
			var resp struct {
				BlogPost *cmsBlogPost `json:"blogPost"`
			}
			if err := s.remote.Query(ctx, queryBlogPostBySlug, map[string]any{"slug": slug}, &resp); err != nil {
				return nil, err
			}
			if resp.BlogPost == nil {
				return nil, nil
			}
			p := resp.BlogPost.toDomain()
			return &p, nil
		},
		func() *domain.BlogPost { return s.fallback.BlogPostBySlug(slug) },
	))
}

func (s *Service) Testimonials(ctx context.Context, limit int) []domain.Testimonial {
	if limit < 1 {
		limit = 10
	}
	return read(ctx, s, "testimonials", cacheKey(ModelTestimonial, "list", limit),
		func(ctx context.Context) ([]domain.Testimonial, error) {
			var resp struct {
				AllTestimonials []domain.Testimonial `json:"allTestimonials"`
			}
			if err := s.remote.Query(ctx, queryAllTestimonials, map[string]any{"first": limit}, &resp); err != nil {
				return nil, err
			}
			return resp.AllTestimonials, nil
		},
		func() []domain.Testimonial { return s.fallback.Testimonials(limit) },
	)
}

func (s *Service) PageBySlug(ctx context.Context, slug string) (*domain.ContentPage, error) {
	return found(read(ctx, s, "page", cacheKey(ModelPage, "slug", slug),
		func(ctx context.Context) (*domain.ContentPage, error) {
			var resp struct {
				Page *domain.ContentPage `json:"page"`
			}
			err := s.remote.Query(ctx, queryPageBySlug, map[string]any{"slug": slug}, &resp)
			return resp.Page, err
		},
		func() *domain.ContentPage { return s.fallback.PageBySlug(slug) },
	))
}

func (s *Service) Homepage(ctx context.Context) domain.Homepage {
	return read(ctx, s, "homepage", cacheKey(modelHome, "data"),
		func(ctx context.Context) (domain.Homepage, error) {
			var resp struct {
				FeaturedKittens []cmsKitten          `json:"featuredKittens"`
				AllBreeds       []domain.Breed       `json:"allBreeds"`
				AllTestimonials []domain.Testimonial `json:"allTestimonials"`
			}
			if err := s.remote.Query(ctx, queryHomepage, nil, &resp); err != nil {
				return domain.Homepage{}, err
			}
			return domain.Homepage{
				FeaturedKittens: kittensToDomain(resp.FeaturedKittens),
				Breeds:          resp.AllBreeds,
				Testimonials:    resp.AllTestimonials,
			}, nil
		},
		s.fallback.Homepage,
	)
}
