package domain

import "time"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityReserved  Availability = "reserved"
	AvailabilitySold      Availability = "sold"
)

type Image struct {
	URL    string `json:"url"`
	Alt    string `json:"alt,omitempty"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Breed struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Slug            string   `json:"slug"`
	Description     string   `json:"description"`
	Image           *Image   `json:"image"`
	Characteristics []string `json:"characteristics"`
}

// Kitten is owned by the content system. The application only reads it.
type Kitten struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Slug         string       `json:"slug"`
	Breed        Breed        `json:"breed"`
	Price        float64      `json:"price"`
	Age          string       `json:"age"`
	Gender       Gender       `json:"gender"`
	Description  string       `json:"description"`
	Thumbnail    *Image       `json:"thumbnail"`
	Images       []Image      `json:"images"`
	Availability Availability `json:"availability"`
	Featured     bool         `json:"featured"`
	Vaccinated   bool         `json:"vaccinated"`
	Microchipped bool         `json:"microchipped"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// PrimaryImageURL returns the first gallery image, falling back to the thumbnail.
func (k Kitten) PrimaryImageURL() string {
	if len(k.Images) > 0 {
		return k.Images[0].URL
	}
	if k.Thumbnail != nil {
		return k.Thumbnail.URL
	}
	return ""
}

type BlogPost struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Excerpt       string    `json:"excerpt"`
	Content       any       `json:"content"`
	FeaturedImage *Image    `json:"featuredImage"`
	Author        string    `json:"author"`
	PublishedAt   time.Time `json:"publishedAt"`
	Tags          []string  `json:"tags"`
}

type Testimonial struct {
	ID              string `json:"id"`
	CustomerName    string `json:"customerName"`
	Quote           string `json:"quote"`
	Rating          int    `json:"rating"`
	KittenPurchased string `json:"kittenPurchased,omitempty"`
	CustomerImage   *Image `json:"customerImage,omitempty"`
}

type ContentPage struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Slug    string `json:"slug"`
	Content any    `json:"content"`
}

type KittenFilters struct {
	Breed        string       `json:"breed,omitempty"`
	Gender       Gender       `json:"gender,omitempty"`
	MinPrice     float64      `json:"minPrice,omitempty"`
	MaxPrice     float64      `json:"maxPrice,omitempty"`
	Availability Availability `json:"availability,omitempty"`
	Featured     *bool        `json:"featured,omitempty"`
	Search       string       `json:"search,omitempty"`
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// NewPage computes totalPages for total items split by pageSize.
func NewPage[T any](items []T, total, page, pageSize int) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return Page[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

type Homepage struct {
	FeaturedKittens []Kitten      `json:"featuredKittens"`
	Breeds          []Breed       `json:"breeds"`
	Testimonials    []Testimonial `json:"testimonials"`
}
