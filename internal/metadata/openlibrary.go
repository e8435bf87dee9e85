package metadata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	openLibraryURL = "https://openlibrary.org"
	coversURL      = "https://covers.openlibrary.org"
)

// OpenLibraryProvider looks books up in the Open Library API. It needs no key
// and serves as the fallback for Google Books.
type OpenLibraryProvider struct {
	client  *http.Client
	baseURL string
}

// NewOpenLibraryProvider creates a provider. An empty baseURL uses openlibrary.org.
func NewOpenLibraryProvider(baseURL string) *OpenLibraryProvider {
	if baseURL == "" {
		baseURL = openLibraryURL
	}
	return &OpenLibraryProvider{
		client:  &http.Client{Timeout: defaultTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider identifier
func (p *OpenLibraryProvider) Name() string {
	return "openlibrary"
}

type olEdition struct {
	Title       string   `json:"title"`
	Authors     []olRef  `json:"authors"`
	Publishers  []string `json:"publishers"`
	PublishDate string   `json:"publish_date"`
	ISBN10      []string `json:"isbn_10"`
	ISBN13      []string `json:"isbn_13"`
	Covers      []int    `json:"covers"`
	NumberPages int      `json:"number_of_pages"`
	Subjects    []string `json:"subjects"`
	Languages   []olRef  `json:"languages"`
	Description any      `json:"description"` // string or {type, value}
}

type olRef struct {
	Key string `json:"key"`
}

type olAuthor struct {
	Name string `json:"name"`
}

type olSearchResponse struct {
	NumFound int           `json:"numFound"`
	Docs     []olSearchDoc `json:"docs"`
}

type olSearchDoc struct {
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	Publisher        []string `json:"publisher"`
	FirstPublishYear int      `json:"first_publish_year"`
	ISBN             []string `json:"isbn"`
	CoverI           int      `json:"cover_i"`
	Subject          []string `json:"subject"`
	NumberPages      int      `json:"number_of_pages_median"`
	Language         []string `json:"language"`
}

// LookupByISBN fetches the edition for isbn and resolves its author names
func (p *OpenLibraryProvider) LookupByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	isbn = normalizeISBN(isbn)
	if isbn == "" {
		return nil, ErrNoMatch
	}

	var edition olEdition
	if err := getJSON(ctx, p.client, fmt.Sprintf("%s/isbn/%s.json", p.baseURL, isbn), &edition); err != nil {
		return nil, err
	}

	meta := p.convertEdition(&edition, isbn)
	meta.Authors = p.resolveAuthors(ctx, edition.Authors)
	return meta, nil
}

// resolveAuthors turns author refs into names. Refs that fail to load are skipped.
func (p *OpenLibraryProvider) resolveAuthors(ctx context.Context, refs []olRef) []string {
	var names []string
	for _, ref := range refs {
		if !strings.HasPrefix(ref.Key, "/authors/") {
			continue
		}
		var author olAuthor
		if err := getJSON(ctx, p.client, p.baseURL+ref.Key+".json", &author); err != nil {
			continue
		}
		if author.Name != "" {
			names = append(names, author.Name)
		}
	}
	return names
}

// Search finds books matching title and optional author
func (p *OpenLibraryProvider) Search(ctx context.Context, title, author string) ([]BookMetadata, error) {
	params := url.Values{}
	params.Set("title", title)
	if author != "" {
		params.Set("author", author)
	}
	params.Set("limit", "5")
	params.Set("fields", "title,author_name,publisher,first_publish_year,isbn,cover_i,subject,number_of_pages_median,language")

	var data olSearchResponse
	if err := getJSON(ctx, p.client, p.baseURL+"/search.json?"+params.Encode(), &data); err != nil {
		return nil, err
	}
	if data.NumFound == 0 || len(data.Docs) == 0 {
		return nil, ErrNoMatch
	}

	results := make([]BookMetadata, 0, len(data.Docs))
	for i := range data.Docs {
		results = append(results, p.convertSearchDoc(&data.Docs[i]))
	}
	return results, nil
}

// GetCoverURL returns URL for book cover image
func (p *OpenLibraryProvider) GetCoverURL(isbn string, size CoverSize) string {
	isbn = normalizeISBN(isbn)
	if isbn == "" {
		return ""
	}
	return fmt.Sprintf("%s/b/isbn/%s-%s.jpg", coversURL, isbn, size)
}

func (p *OpenLibraryProvider) convertEdition(e *olEdition, isbn string) *BookMetadata {
	meta := &BookMetadata{
		Title:       e.Title,
		Publisher:   firstOrEmpty(e.Publishers),
		PublishDate: e.PublishDate,
		PageCount:   e.NumberPages,
		Subjects:    e.Subjects,
		Source:      p.Name(),
		Confidence:  1.0,
	}
	meta.ISBN10 = firstOrEmpty(e.ISBN10)
	meta.ISBN13 = firstOrEmpty(e.ISBN13)
	if len(e.Languages) > 0 {
		meta.Language = strings.TrimPrefix(e.Languages[0].Key, "/languages/")
	}

	switch desc := e.Description.(type) {
	case string:
		meta.Description = desc
	case map[string]any:
		if val, ok := desc["value"].(string); ok {
			meta.Description = val
		}
	}

	if len(e.Covers) > 0 {
		meta.CoverURL = fmt.Sprintf("%s/b/id/%d-M.jpg", coversURL, e.Covers[0])
	} else {
		meta.CoverURL = p.GetCoverURL(isbn, CoverMedium)
	}
	return meta
}

func (p *OpenLibraryProvider) convertSearchDoc(doc *olSearchDoc) BookMetadata {
	meta := BookMetadata{
		Title:     doc.Title,
		Authors:   doc.AuthorName,
		Publisher: firstOrEmpty(doc.Publisher),
		PageCount: doc.NumberPages,
		Language:  firstOrEmpty(doc.Language),
		Source:    p.Name(),
	}
	if doc.FirstPublishYear > 0 {
		meta.PublishDate = strconv.Itoa(doc.FirstPublishYear)
	}

	for _, isbn := range doc.ISBN {
		normalized := normalizeISBN(isbn)
		if len(normalized) == 10 && meta.ISBN10 == "" {
			meta.ISBN10 = normalized
		} else if len(normalized) == 13 && meta.ISBN13 == "" {
			meta.ISBN13 = normalized
		}
	}

	meta.Subjects = doc.Subject
	if len(meta.Subjects) > 5 {
		meta.Subjects = meta.Subjects[:5]
	}

	switch {
	case doc.CoverI > 0:
		meta.CoverURL = fmt.Sprintf("%s/b/id/%d-M.jpg", coversURL, doc.CoverI)
	case meta.ISBN13 != "":
		meta.CoverURL = p.GetCoverURL(meta.ISBN13, CoverMedium)
	case meta.ISBN10 != "":
		meta.CoverURL = p.GetCoverURL(meta.ISBN10, CoverMedium)
	}
	return meta
}

// normalizeISBN removes hyphens, spaces and a urn:isbn: prefix
func normalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	isbn = strings.TrimPrefix(strings.ToLower(isbn), "urn:isbn:")
	return strings.TrimSpace(isbn)
}

func firstOrEmpty(s []string) string {
	if len(s) > 0 {
		return s[0]
	}
	return ""
}
