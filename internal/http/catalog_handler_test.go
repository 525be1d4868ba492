package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/cats-den/internal/catalog"
	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/logger"
)

// fallbackCatalog serves the embedded data set with no content system behind it.
func fallbackCatalog(t *testing.T) *catalog.Service {
	t.Helper()
	fb, err := catalog.LoadFallback()
	require.NoError(t, err)
	return catalog.NewService(nil, fb, catalog.WithLogger(logger.Discard()))
}

func newCatalogHandler(t *testing.T) *CatalogHandler {
	return NewCatalogHandler(fallbackCatalog(t), 5*time.Second, logger.Discard())
}

func TestCatalog_Kittens(t *testing.T) {
	handler := newCatalogHandler(t)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/api/kittens?gender=female&maxPrice=2000&pageSize=1&page=2", nil)

	handler.Kittens(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	var page domain.Page[domain.Kitten]
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, domain.GenderFemale, page.Items[0].Gender)
}

func TestCatalog_KittensBadQuery(t *testing.T) {
	handler := newCatalogHandler(t)

	for _, query := range []string{"page=two", "minPrice=-5", "featured=maybe"} {
		t.Run(query, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.Kittens(recorder, httptest.NewRequest(http.MethodGet, "/api/kittens?"+query, nil))
			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Equal(t, CodeInvalidInput, decodeError(t, recorder).Code)
		})
	}
}

func TestCatalog_KittenBySlug(t *testing.T) {
	handler := newCatalogHandler(t)
	recorder := httptest.NewRecorder()
	request := withURLParam(httptest.NewRequest(http.MethodGet, "/api/kittens/luna-british-shorthair", nil), "slug", "luna-british-shorthair")

	handler.Kitten(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp KittenResponseDTO
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "k1", resp.Kitten.ID)
	for _, k := range resp.Related {
		assert.NotEqual(t, "k1", k.ID)
	}
}

func TestCatalog_NotFound(t *testing.T) {
	handler := newCatalogHandler(t)

	tests := []struct {
		name string
		call http.HandlerFunc
	}{
		{"kitten", handler.Kitten},
		{"breed", handler.Breed},
		{"blog post", handler.BlogPost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			tt.call(recorder, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "slug", "no-such-slug"))
			assert.Equal(t, http.StatusNotFound, recorder.Code)
		})
	}
}

func TestCatalog_Breed(t *testing.T) {
	handler := newCatalogHandler(t)
	recorder := httptest.NewRecorder()
	request := withURLParam(httptest.NewRequest(http.MethodGet, "/api/breeds/ragdoll", nil), "slug", "ragdoll")

	handler.Breed(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp BreedResponseDTO
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "ragdoll", resp.Breed.Slug)
	require.Len(t, resp.Kittens, 1)
	assert.Equal(t, "k2", resp.Kittens[0].ID)
}

func TestCatalog_Home(t *testing.T) {
	handler := newCatalogHandler(t)
	recorder := httptest.NewRecorder()

	handler.Home(recorder, httptest.NewRequest(http.MethodGet, "/api/home", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	var home domain.Homepage
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &home))
	assert.NotEmpty(t, home.FeaturedKittens)
	assert.NotEmpty(t, home.Breeds)
	assert.NotEmpty(t, home.Testimonials)
}

func TestCatalog_Page(t *testing.T) {
	handler := newCatalogHandler(t)
	recorder := httptest.NewRecorder()
	request := withURLParam(httptest.NewRequest(http.MethodGet, "/api/pages/about-us", nil), "slug", "about-us")

	handler.Page(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"title":"About us"`)
}
