package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/cats-den/internal/domain"
)

func loadFallback(t *testing.T) *Fallback {
	t.Helper()
	f, err := LoadFallback()
	require.NoError(t, err)
	return f
}

func kittenIDs(kittens []domain.Kitten) []string {
	ids := make([]string, 0, len(kittens))
	for _, k := range kittens {
		ids = append(ids, k.ID)
	}
	return ids
}

func TestLoadFallback(t *testing.T) {
	f := loadFallback(t)

	assert.Len(t, f.Breeds(), 6)
	assert.Len(t, f.Testimonials(0), 3)
	assert.Equal(t, 3, f.BlogPosts(1, 10).Total)

	luna := f.KittenByID("k1")
	require.NotNil(t, luna)
	assert.Equal(t, "Luna", luna.Name)
	assert.Equal(t, "british-shorthair", luna.Breed.Slug)
	assert.Equal(t, 1500.0, luna.Price)
	assert.Len(t, luna.Images, 2)
}

func TestParseFallback_UnknownBreed(t *testing.T) {
	_, err := parseFallback([]byte(`{"kittens":[{"id":"k9","breedId":"nope"}]}`))
	assert.Error(t, err)
}

func TestFallback_KittenFilters(t *testing.T) {
	f := loadFallback(t)

	tests := []struct {
		name    string
		filters domain.KittenFilters
		want    []string
	}{
		{"no filters", domain.KittenFilters{}, []string{"k1", "k2", "k3", "k4", "k5", "k6"}},
		{"breed", domain.KittenFilters{Breed: "ragdoll"}, []string{"k2"}},
		{"gender", domain.KittenFilters{Gender: domain.GenderFemale}, []string{"k1", "k4", "k6"}},
		{"availability", domain.KittenFilters{Availability: domain.AvailabilityReserved}, []string{"k5"}},
		{"min price", domain.KittenFilters{MinPrice: 2000}, []string{"k3", "k6"}},
		{"price range", domain.KittenFilters{MinPrice: 1600, MaxPrice: 1900}, []string{"k2", "k4", "k5"}},
		{"search by breed name", domain.KittenFilters{Search: "BENGAL"}, []string{"k6"}},
		{"search by description", domain.KittenFilters{Search: "folded ears"}, []string{"k5"}},
		{"no match", domain.KittenFilters{Breed: "sphynx"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := f.Kittens(tt.filters, 1, 12)
			assert.Equal(t, tt.want, kittenIDs(page.Items))
			assert.Equal(t, len(tt.want), page.Total)
		})
	}
}

func TestFallback_Pagination(t *testing.T) {
	f := loadFallback(t)

	page := f.Kittens(domain.KittenFilters{}, 2, 4)
	assert.Equal(t, []string{"k5", "k6"}, kittenIDs(page.Items))
	assert.Equal(t, 6, page.Total)
	assert.Equal(t, 2, page.TotalPages)

	beyond := f.Kittens(domain.KittenFilters{}, 5, 4)
	assert.NotNil(t, beyond.Items)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 6, beyond.Total)
}

func TestFallback_Lookups(t *testing.T) {
	f := loadFallback(t)

	assert.Len(t, f.FeaturedKittens(6), 6)
	assert.Len(t, f.FeaturedKittens(2), 2)
	assert.Equal(t, []string{"k3"}, kittenIDs(f.KittensByBreed("3", 6)))
	assert.Nil(t, f.KittenBySlug("missing"))
	assert.Equal(t, "k6", f.KittenBySlug("zara-bengal").ID)
	assert.Equal(t, "Maine Coon", f.BreedBySlug("maine-coon").Name)
	assert.Equal(t, "b2", f.BlogPostBySlug("understanding-cat-body-language").ID)

	page := f.PageBySlug("about-us")
	assert.Equal(t, "About us", page.Title)
	assert.Equal(t, "about-us", page.Slug)

	home := f.Homepage()
	assert.Len(t, home.FeaturedKittens, 6)
	assert.Len(t, home.Breeds, 6)
	assert.Len(t, home.Testimonials, 3)
}

func TestFallback_ReturnsCopies(t *testing.T) {
	f := loadFallback(t)

	breeds := f.Breeds()
	breeds[0].Name = "changed"
	assert.Equal(t, "British Shorthair", f.Breeds()[0].Name)
}
