package metadata

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"unicode"
)

const googleBooksURL = "https://www.googleapis.com/books/v1"

// Category fragments that mark periodicals and academic papers
var excludedCategories = []string{
	"magazine", "journal", "periodical", "newspaper", "academic",
	"thesis", "dissertation", "research", "paper", "report", "proceedings",
	"잡지", "학술지", "논문", "연구", "보고서",
}

// GoogleBooksProvider looks books up in the Google Books volumes API,
// restricted to Korean-language print books.
type GoogleBooksProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewGoogleBooksProvider creates a provider. An empty baseURL uses googleapis.com.
func NewGoogleBooksProvider(apiKey, baseURL string) *GoogleBooksProvider {
	if baseURL == "" {
		baseURL = googleBooksURL
	}
	return &GoogleBooksProvider{
		client:  &http.Client{Timeout: defaultTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Name returns the provider identifier
func (p *GoogleBooksProvider) Name() string {
	return "googlebooks"
}

type gbResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []gbItem `json:"items"`
}

type gbItem struct {
	VolumeInfo gbVolumeInfo `json:"volumeInfo"`
	SaleInfo   struct {
		PrintType string `json:"printType"`
	} `json:"saleInfo"`
}

type gbVolumeInfo struct {
	Title               string   `json:"title"`
	Authors             []string `json:"authors"`
	Publisher           string   `json:"publisher"`
	PublishedDate       string   `json:"publishedDate"`
	Description         string   `json:"description"`
	PageCount           int      `json:"pageCount"`
	Categories          []string `json:"categories"`
	Language            string   `json:"language"`
	PrintType           string   `json:"printType"`
	IndustryIdentifiers []struct {
		Type       string `json:"type"`
		Identifier string `json:"identifier"`
	} `json:"industryIdentifiers"`
	ImageLinks struct {
		Thumbnail      string `json:"thumbnail"`
		SmallThumbnail string `json:"smallThumbnail"`
	} `json:"imageLinks"`
}

func (p *GoogleBooksProvider) query(ctx context.Context, q, maxResults string) ([]gbItem, error) {
	if p.apiKey == "" {
		return nil, ErrNotConfigured
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("langRestrict", "ko")
	params.Set("printType", "books")
	if maxResults != "" {
		params.Set("maxResults", maxResults)
	}
	params.Set("key", p.apiKey)

	var data gbResponse
	if err := getJSON(ctx, p.client, p.baseURL+"/volumes?"+params.Encode(), &data); err != nil {
		return nil, err
	}
	if len(data.Items) == 0 {
		return nil, ErrNoMatch
	}
	return data.Items, nil
}

// LookupByISBN returns the first Korean book for isbn. The ISBN was typed by
// the reader, so when no result passes the filter the first result is used.
func (p *GoogleBooksProvider) LookupByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	isbn = normalizeISBN(isbn)
	if isbn == "" {
		return nil, ErrNoMatch
	}
	items, err := p.query(ctx, "isbn:"+isbn, "")
	if err != nil {
		return nil, err
	}

	chosen := items[0]
	for _, item := range items {
		if isKoreanBook(item) {
			chosen = item
			break
		}
	}
	meta := p.convert(chosen)
	meta.Confidence = 1.0
	return &meta, nil
}

// Search finds Korean books matching title and optional author
func (p *GoogleBooksProvider) Search(ctx context.Context, title, author string) ([]BookMetadata, error) {
	q := "intitle:" + title
	if author != "" {
		q += " inauthor:" + author
	}
	items, err := p.query(ctx, q, "10")
	if err != nil {
		return nil, err
	}

	var results []BookMetadata
	for _, item := range items {
		if isKoreanBook(item) {
			results = append(results, p.convert(item))
		}
	}
	if len(results) == 0 {
		return nil, ErrNoMatch
	}
	return results, nil
}

// GetCoverURL is not supported; Google covers come with the volume
func (p *GoogleBooksProvider) GetCoverURL(isbn string, size CoverSize) string {
	return ""
}

func (p *GoogleBooksProvider) convert(item gbItem) BookMetadata {
	info := item.VolumeInfo
	meta := BookMetadata{
		Title:       info.Title,
		Authors:     info.Authors,
		Publisher:   info.Publisher,
		PublishDate: info.PublishedDate,
		Description: info.Description,
		PageCount:   info.PageCount,
		Subjects:    info.Categories,
		Language:    info.Language,
		Source:      p.Name(),
	}
	for _, id := range info.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_10":
			meta.ISBN10 = id.Identifier
		case "ISBN_13":
			meta.ISBN13 = id.Identifier
		}
	}
	meta.CoverURL = info.ImageLinks.Thumbnail
	if meta.CoverURL == "" {
		meta.CoverURL = info.ImageLinks.SmallThumbnail
	}
	return meta
}

// isKoreanBook keeps Korean print books. Translations with a Korean title or
// author pass even when the volume reports another language.
func isKoreanBook(item gbItem) bool {
	info := item.VolumeInfo
	if info.Title == "" {
		return false
	}

	if lang := info.Language; lang != "" && lang != "ko" && lang != "ko-KR" {
		if !hasHangul(info.Title) && !anyHangul(info.Authors) {
			return false
		}
	}

	printType := item.SaleInfo.PrintType
	if printType == "" {
		printType = info.PrintType
	}
	if printType != "" && printType != "BOOK" {
		return false
	}

	for _, cat := range info.Categories {
		lower := strings.ToLower(cat)
		for _, excluded := range excludedCategories {
			if strings.Contains(lower, excluded) {
				return false
			}
		}
	}
	return true
}

func hasHangul(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}

func anyHangul(values []string) bool {
	for _, v := range values {
		if hasHangul(v) {
			return true
		}
	}
	return false
}
