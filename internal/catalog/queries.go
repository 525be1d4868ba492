package catalog

import (
	"time"

	"github.com/fjod/cats-den/internal/domain"
)

const imageFields = `url alt width height`

const breedFields = `
	id
	name
	slug
	description
	characteristics
	image { ` + imageFields + ` }`

const kittenFields = `
	id
	name
	slug
	price
	age
	gender
	description
	availability
	featured
	vaccinated
	microchipped
	_createdAt
	thumbnail { ` + imageFields + ` }
	images { ` + imageFields + ` }
	breed { ` + breedFields + ` }`

const blogPostFields = `
	id
	title
	slug
	excerpt
	author
	_publishedAt
	tags
	featuredImage { ` + imageFields + ` }
	content { value }`

const testimonialFields = `
	id
	customerName
	quote
	rating
	kittenPurchased
	customerImage { ` + imageFields + ` }`

const (
	queryAllBreeds = `query AllBreeds {
	allBreeds(orderBy: name_ASC) {` + breedFields + `}
}`

	queryBreedBySlug = `query BreedBySlug($slug: String!) {
	breed(filter: { slug: { eq: $slug } }) {` + breedFields + `}
}`

	queryAllKittens = `query AllKittens($first: IntType, $skip: IntType, $filter: KittenModelFilter) {
	allKittens(first: $first, skip: $skip, filter: $filter, orderBy: _createdAt_DESC) {` + kittenFields + `}
	_allKittensMeta(filter: $filter) { count }
}`

	queryFeaturedKittens = `query FeaturedKittens($first: IntType) {
	allKittens(first: $first, filter: { featured: { eq: true } }, orderBy: _createdAt_DESC) {` + kittenFields + `}
}`

	queryKittenBySlug = `query KittenBySlug($slug: String!) {
	kitten(filter: { slug: { eq: $slug } }) {` + kittenFields + `}
}`

	queryKittenByID = `query KittenByID($id: ItemId!) {
	kitten(filter: { id: { eq: $id } }) {` + kittenFields + `}
}`

	queryKittensByBreed = `query KittensByBreed($breedId: ItemId!, $first: IntType) {
	allKittens(first: $first, filter: { breed: { eq: $breedId } }) {` + kittenFields + `}
}`

	queryPageBySlug = `query PageBySlug($slug: String!) {
	page(filter: { slug: { eq: $slug } }) {
		id
		title
		slug
		content { value }
	}
}`

	queryAllBlogPosts = `query AllBlogPosts($first: IntType, $skip: IntType) {
	allBlogPosts(first: $first, skip: $skip, orderBy: _publishedAt_DESC) {` + blogPostFields + `}
	_allBlogPostsMeta { count }
}`

	queryBlogPostBySlug = `query BlogPostBySlug($slug: String!) {
	blogPost(filter: { slug: { eq: $slug } }) {` + blogPostFields + `}
}`

	queryAllTestimonials = `query AllTestimonials($first: IntType) {
	allTestimonials(first: $first, orderBy: _createdAt_DESC) {` + testimonialFields + `}
}`

	queryHomepage = `query Homepage {
	featuredKittens: allKittens(first: 6, filter: { featured: { eq: true } }, orderBy: _createdAt_DESC) {` + kittenFields + `}
	allBreeds(orderBy: name_ASC) {` + breedFields + `}
	allTestimonials(first: 3, orderBy: _createdAt_DESC) {` + testimonialFields + `}
}`
)

// The content system prefixes system fields with an underscore.

type cmsKitten struct {
	domain.Kitten
	SystemCreatedAt time.Time `json:"_createdAt"`
}

func (c cmsKitten) toDomain() domain.Kitten {
	k := c.Kitten
	k.CreatedAt = c.SystemCreatedAt
	return k
}

func kittensToDomain(in []cmsKitten) []domain.Kitten {
	out := make([]domain.Kitten, 0, len(in))
	for _, k := range in {
		out = append(out, k.toDomain())
	}
	return out
}

type cmsBlogPost struct {
	domain.BlogPost
	SystemPublishedAt time.Time `json:"_publishedAt"`
}

func (c cmsBlogPost) toDomain() domain.BlogPost {
	p := c.BlogPost
	p.PublishedAt = c.SystemPublishedAt
	return p
}

type countMeta struct {
	Count int `json:"count"`
}
