package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/logger"
)

type CatalogReader interface {
	Breeds(ctx context.Context) []domain.Breed
	BreedBySlug(ctx context.Context, slug string) (*domain.Breed, error)
	Kittens(ctx context.Context, filters domain.KittenFilters, page, pageSize int) domain.Page[domain.Kitten]
	FeaturedKittens(ctx context.Context, limit int) []domain.Kitten
	KittenBySlug(ctx context.Context, slug string) (*domain.Kitten, error)
	KittenByID(ctx context.Context, id string) (*domain.Kitten, error)
	KittensByBreed(ctx context.Context, breedID string, limit int) []domain.Kitten
	BlogPosts(ctx context.Context, page, pageSize int) domain.Page[domain.BlogPost]
	BlogPostBySlug(ctx context.Context, slug string) (*domain.BlogPost, error)
	Testimonials(ctx context.Context, limit int) []domain.Testimonial
	PageBySlug(ctx context.Context, slug string) (*domain.ContentPage, error)
	Homepage(ctx context.Context) domain.Homepage
}

// CatalogHandler serves read-only storefront content. The catalog degrades
// to local data on its own, so only lookups of unknown slugs fail.
type CatalogHandler struct {
	catalog CatalogReader
	timeout time.Duration
	log     *slog.Logger
}

func NewCatalogHandler(catalog CatalogReader, timeout time.Duration, log *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, timeout: timeout, log: logger.OrDefault(log)}
}

type BreedResponseDTO struct {
	Breed   *domain.Breed   `json:"breed"`
	Kittens []domain.Kitten `json:"kittens"`
}

type KittenResponseDTO struct {
	Kitten  *domain.Kitten  `json:"kitten"`
	Related []domain.Kitten `json:"related"`
}

// queryInt parses an optional integer parameter. Malformed values answer 400.
func queryInt(w http.ResponseWriter, q url.Values, name string) (int, bool) {
	raw := q.Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
			Code: CodeInvalidInput, Message: name + " must be a number", Field: name,
		}})
		return 0, false
	}
	return n, true
}

func queryFloat(w http.ResponseWriter, q url.Values, name string) (float64, bool) {
	raw := q.Get(name)
	if raw == "" {
		return 0, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
			Code: CodeInvalidInput, Message: name + " must be a non-negative number", Field: name,
		}})
		return 0, false
	}
	return f, true
}

// GET /api/breeds
func (h *CatalogHandler) Breeds(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	respondJSON(w, http.StatusOK, h.catalog.Breeds(ctx))
}

// GET /api/breeds/{slug}
func (h *CatalogHandler) Breed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	breed, err := h.catalog.BreedBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, BreedResponseDTO{
		Breed:   breed,
		Kittens: h.catalog.KittensByBreed(ctx, breed.ID, 24),
	})
}

// GET /api/kittens
func (h *CatalogHandler) Kittens(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	page, ok := queryInt(w, q, "page")
	if !ok {
		return
	}
	pageSize, ok := queryInt(w, q, "pageSize")
	if !ok {
		return
	}
	minPrice, ok := queryFloat(w, q, "minPrice")
	if !ok {
		return
	}
	maxPrice, ok := queryFloat(w, q, "maxPrice")
	if !ok {
		return
	}

	filters := domain.KittenFilters{
		Breed:        q.Get("breed"),
		Gender:       domain.Gender(strings.ToLower(q.Get("gender"))),
		Availability: domain.Availability(strings.ToLower(q.Get("availability"))),
		MinPrice:     minPrice,
		MaxPrice:     maxPrice,
		Search:       strings.TrimSpace(q.Get("search")),
	}
	if raw := q.Get("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
				Code: CodeInvalidInput, Message: "featured must be true or false", Field: "featured",
			}})
			return
		}
		filters.Featured = &featured
	}

	respondJSON(w, http.StatusOK, h.catalog.Kittens(ctx, filters, page, pageSize))
}

// GET /api/kittens/featured
func (h *CatalogHandler) FeaturedKittens(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit, ok := queryInt(w, r.URL.Query(), "limit")
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.catalog.FeaturedKittens(ctx, limit))
}

// GET /api/kittens/{slug}
func (h *CatalogHandler) Kitten(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	kitten, err := h.catalog.KittenBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	related := make([]domain.Kitten, 0, 4)
	for _, k := range h.catalog.KittensByBreed(ctx, kitten.Breed.ID, 5) {
		if k.ID != kitten.ID && len(related) < 4 {
			related = append(related, k)
		}
	}
	respondJSON(w, http.StatusOK, KittenResponseDTO{Kitten: kitten, Related: related})
}

// GET /api/blog
func (h *CatalogHandler) BlogPosts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	page, ok := queryInt(w, q, "page")
	if !ok {
		return
	}
	pageSize, ok := queryInt(w, q, "pageSize")
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.catalog.BlogPosts(ctx, page, pageSize))
}

// GET /api/blog/{slug}
func (h *CatalogHandler) BlogPost(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	post, err := h.catalog.BlogPostBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// GET /api/testimonials
func (h *CatalogHandler) Testimonials(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit, ok := queryInt(w, r.URL.Query(), "limit")
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.catalog.Testimonials(ctx, limit))
}

// GET /api/pages/{slug}
func (h *CatalogHandler) Page(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, err := h.catalog.PageBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// GET /api/home
func (h *CatalogHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	respondJSON(w, http.StatusOK, h.catalog.Homepage(ctx))
}
