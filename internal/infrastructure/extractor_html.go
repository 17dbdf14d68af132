package infrastructure

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yourusername/vidharvest/internal/domain"
)

// HTMLExtractor implements domain.Extractor by selecting media elements from page markup
type HTMLExtractor struct {
	selector string
}

// NewHTMLExtractor creates an extractor; an empty selector selects video elements
func NewHTMLExtractor(config domain.ExtractorConfig) *HTMLExtractor {
	selector := config.Selector
	if selector == "" {
		selector = "video"
	}
	return &HTMLExtractor{selector: selector}
}

// Extract returns one descriptor per selected element with a usable source, in document order
func (e *HTMLExtractor) Extract(item domain.WorkItem, body []byte) ([]domain.MediaDescriptor, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewItemError(domain.KindExtraction, item, fmt.Errorf("failed to parse page: %w", err))
	}

	base, _ := url.Parse(string(item))

	descriptors := []domain.MediaDescriptor{}
	doc.Find(e.selector).Each(func(_ int, s *goquery.Selection) {
		locator, ok := resolveLocator(base, mediaSource(s))
		if !ok {
			return
		}
		descriptors = append(descriptors, domain.MediaDescriptor{
			Owner:   item,
			Ordinal: len(descriptors),
			Locator: locator,
		})
	})

	return descriptors, nil
}

// mediaSource returns the element's src, falling back to its first <source src>
func mediaSource(s *goquery.Selection) string {
	if src, ok := s.Attr("src"); ok && strings.TrimSpace(src) != "" {
		return strings.TrimSpace(src)
	}
	src, _ := s.Find("source[src]").First().Attr("src")
	return strings.TrimSpace(src)
}

func resolveLocator(base *url.URL, src string) (string, bool) {
	if src == "" {
		return "", false
	}
	lower := strings.ToLower(src)
	if strings.HasPrefix(lower, "blob:") || strings.HasPrefix(lower, "data:") {
		return "", false
	}

	ref, err := url.Parse(src)
	if err != nil {
		return "", false
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return "", false
	}
	return ref.String(), true
}
