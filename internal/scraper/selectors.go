package scraper

import (
	"encoding/json"
	"fmt"
	"os"
)

// SelectorConfig holds every CSS selector the extractor tries, so a page
// redesign is a config change rather than a code change. Each field's
// selectors are tried in order; the first match wins.
type SelectorConfig struct {
	Card   CardSelectors   `json:"card"`
	Fields FieldSelectors  `json:"fields"`
	Detail DetailSelectors `json:"detail"`
}

type CardSelectors struct {
	// Containers are the thread-card patterns, highest priority first.
	Containers []string `json:"containers"`
	// DomainLink locates a listing link when no card container exists.
	DomainLink string `json:"domain_link"`
	// EmbeddedData locates the element carrying the serialized JSON side
	// channel, read from EmbeddedAttr.
	EmbeddedData string `json:"embedded_data"`
	EmbeddedAttr string `json:"embedded_attr"`
}

type FieldSelectors struct {
	Title       []string `json:"title"`
	Link        []string `json:"link"`
	Price       []string `json:"price"`
	OldPrice    []string `json:"old_price"`
	Discount    []string `json:"discount"`
	Store       []string `json:"store"`
	Image       []string `json:"image"`
	Code        []string `json:"code"`
	Description []string `json:"description"`
}

type DetailSelectors struct {
	OGImage     string   `json:"og_image"`
	Image       []string `json:"image"`
	Price       []string `json:"price"`
	OldPrice    []string `json:"old_price"`
	Discount    []string `json:"discount"`
	Store       []string `json:"store"`
	Code        []string `json:"code"`
	Description []string `json:"description"`
	VisitLink   []string `json:"visit_link"`
}

// LoadSelectors loads the selector configuration from the specified JSON file.
func LoadSelectors(path string) (SelectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to read selector config file: %w", err)
	}
	return LoadSelectorsFromBytes(data)
}

// LoadSelectorsFromBytes parses selector configuration from raw JSON bytes.
// This supports loading from embedded data via go:embed.
func LoadSelectorsFromBytes(data []byte) (SelectorConfig, error) {
	var config SelectorConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to parse selector config JSON: %w", err)
	}
	return config, nil
}

// DefaultSelectors returns the fallback configuration if no JSON file is
// loaded. The embedded selectors.json mirrors these values.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		Card: CardSelectors{
			Containers: []string{
				"article.thread",
				"article[data-thread-id]",
				"article[data-t]",
				"div.thread",
				"article",
			},
			DomainLink:   "a[href*='pepper.pl']",
			EmbeddedData: "div.js-vue2",
			EmbeddedAttr: "data-vue2",
		},
		Fields: FieldSelectors{
			Title:       []string{".thread-title a", "h2", "h3", "a"},
			Link:        []string{"a.thread-link", ".thread-title a", "a[href]"},
			Price:       []string{".thread-price", "span[class*='threadItemCard-price']", "span[class*='price']"},
			OldPrice:    []string{"span[class*='lineThrough']", "span[class*='oldPrice']", "span[class*='old-price']"},
			Discount:    []string{"span[class*='discount']", ".badge--deal"},
			Store:       []string{"span[class*='merchant']", ".cept-merchant-link", ".thread-title--merchant"},
			Image:       []string{"img[src]"},
			Code:        []string{"code", ".voucher-code", "span[class*='code']"},
			Description: []string{".cept-description-container", ".thread--text", "p"},
		},
		Detail: DetailSelectors{
			OGImage:     "meta[property='og:image']",
			Image:       []string{"img[src]"},
			Price:       []string{".thread-price", "span[class*='price']"},
			OldPrice:    []string{"span[class*='lineThrough']", "span[class*='oldPrice']"},
			Discount:    []string{"span[class*='discount']", ".badge--deal"},
			Store:       []string{"span[class*='merchant']", ".cept-merchant-link"},
			Code:        []string{"code", ".voucher-code", "span[class*='code']"},
			Description: []string{".cept-description-container", ".thread--text", "p"},
			VisitLink:   []string{"a[href*='/visit/']", "a.cept-dealBtn", ".threadItemCard-btn a"},
		},
	}
}
