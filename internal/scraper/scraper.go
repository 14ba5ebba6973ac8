// Package scraper turns fetched listing pages into structured deal records
// using a cascading selector strategy with embedded-JSON and detail-page
// enrichment.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"pepperwatch/internal/models"
	"pepperwatch/internal/util"
)

// detailConcurrency bounds parallel detail-page fetches within one batch.
const detailConcurrency = 5

// Fetcher retrieves and parses remote pages.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
	ResolveRedirect(ctx context.Context, url string) string
}

type Scraper struct {
	fetcher   Fetcher
	selectors SelectorConfig
	baseURL   string
}

func New(fetcher Fetcher, selectors SelectorConfig, baseURL string) *Scraper {
	return &Scraper{fetcher: fetcher, selectors: selectors, baseURL: baseURL}
}

// ExtractLatest returns the newest deal on the page, or nil when the page is
// unreachable or yields nothing. It never returns an error for transient
// fetch or parse problems.
func (s *Scraper) ExtractLatest(ctx context.Context, pageURL string) (*models.Deal, error) {
	deals, err := s.ExtractLatestBatch(ctx, pageURL)
	if err != nil || len(deals) == 0 {
		return nil, err
	}
	return &deals[0], nil
}

// ExtractLatestBatch returns every deal on the page, newest first (page
// order). A failed fetch or an empty page yields nil, nil.
func (s *Scraper) ExtractLatestBatch(ctx context.Context, pageURL string) ([]models.Deal, error) {
	doc, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		slog.Warn("Page fetch failed, no deals this tick", "url", pageURL, "error", err)
		return nil, nil
	}

	cards := s.findCards(doc)
	if cards == nil {
		if d, ok := s.linkFallback(doc); ok {
			return []models.Deal{d}, nil
		}
		slog.Warn("No deal content located on page", "url", pageURL)
		return nil, nil
	}

	var deals []models.Deal
	cards.Each(func(_ int, card *goquery.Selection) {
		if d, ok := s.parseCard(card); ok {
			deals = append(deals, d)
		}
	})

	// Detail pages fill whatever the listing left empty; fetched in parallel
	// but bounded so one batch cannot monopolize the fetcher.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailConcurrency)
	for i := range deals {
		if !deals[i].NeedsDetail() {
			continue
		}
		deal := &deals[i]
		g.Go(func() error {
			s.enrichFromDetail(gctx, deal)
			return nil
		})
	}
	_ = g.Wait()

	for i := range deals {
		finalize(&deals[i])
	}
	return deals, nil
}

// findCards returns the first container selector's matches, or nil when no
// pattern matches.
func (s *Scraper) findCards(doc *goquery.Document) *goquery.Selection {
	for _, container := range s.selectors.Card.Containers {
		sel := doc.Find(container)
		if sel.Length() > 0 {
			return sel
		}
	}
	return nil
}

// linkFallback emits a minimal deal from the first site link when the page
// has no recognizable card structure at all.
func (s *Scraper) linkFallback(doc *goquery.Document) (models.Deal, bool) {
	a := doc.Find(s.selectors.Card.DomainLink).First()
	if a.Length() == 0 {
		a = doc.Find("a[href]").First()
	}
	href, ok := a.Attr("href")
	if !ok || href == "" {
		return models.Deal{}, false
	}

	dealURL := util.NormalizeURL(href, s.baseURL)
	title := strings.TrimSpace(a.Text())
	if title == "" {
		title = "New deal"
	}
	return models.Deal{
		ID:    util.DealID(dealURL),
		URL:   dealURL,
		Title: title,
	}, true
}

func (s *Scraper) parseCard(card *goquery.Selection) (models.Deal, bool) {
	href := firstAttr(card, s.selectors.Fields.Link, "href")
	if href == "" {
		return models.Deal{}, false
	}

	d := models.Deal{URL: util.NormalizeURL(href, s.baseURL)}
	d.ID = util.DealID(d.URL)
	d.Title = firstText(card, s.selectors.Fields.Title)
	if d.Title == "" {
		d.Title = "New deal"
	}
	d.Price = firstText(card, s.selectors.Fields.Price)
	d.OldPrice = firstText(card, s.selectors.Fields.OldPrice)
	d.Discount = firstText(card, s.selectors.Fields.Discount)
	d.Store = firstText(card, s.selectors.Fields.Store)
	d.Image = firstAttr(card, s.selectors.Fields.Image, "src")
	d.Code = firstText(card, s.selectors.Fields.Code)
	d.Description = firstText(card, s.selectors.Fields.Description)

	if raw := s.embeddedRaw(card); raw != "" {
		if emb, ok := parseEmbeddedData(raw); ok {
			d.Merge(emb)
		}
	}
	return d, true
}

// embeddedRaw returns the serialized JSON side channel attached to the card,
// checking the card's own attribute and then any carrier element inside it.
func (s *Scraper) embeddedRaw(card *goquery.Selection) string {
	if raw, ok := card.Attr(s.selectors.Card.EmbeddedAttr); ok && raw != "" {
		return raw
	}
	carrier := card.Find(s.selectors.Card.EmbeddedData).First()
	if raw, ok := carrier.Attr(s.selectors.Card.EmbeddedAttr); ok {
		return raw
	}
	return ""
}

// enrichFromDetail fetches the deal's own page and backfills still-empty
// fields. DOM-derived values are never overwritten; a failed fetch leaves the
// deal as-is.
func (s *Scraper) enrichFromDetail(ctx context.Context, d *models.Deal) {
	doc, err := s.fetcher.Fetch(ctx, d.URL)
	if err != nil {
		slog.Warn("Detail fetch failed, skipping enrichment", "url", d.URL, "error", err)
		return
	}

	detail := s.selectors.Detail
	var enriched models.Deal

	if content, ok := doc.Find(detail.OGImage).Attr("content"); ok && content != "" {
		enriched.Image = content
	}
	if enriched.Image == "" {
		enriched.Image = firstAttr(doc.Selection, detail.Image, "src")
	}
	enriched.Price = firstText(doc.Selection, detail.Price)
	enriched.OldPrice = firstText(doc.Selection, detail.OldPrice)
	enriched.Discount = firstText(doc.Selection, detail.Discount)
	if enriched.Discount == "" {
		enriched.Discount = percentNearPrices(doc, detail.Price)
	}
	enriched.Store = firstText(doc.Selection, detail.Store)
	enriched.Code = firstText(doc.Selection, detail.Code)
	enriched.Description = firstText(doc.Selection, detail.Description)

	if href := firstAttr(doc.Selection, detail.VisitLink, "href"); href != "" {
		outbound := util.NormalizeURL(href, s.baseURL)
		enriched.StoreURL = s.fetcher.ResolveRedirect(ctx, outbound)
	}

	d.Merge(enriched)
}

// percentNearPrices scans the text surrounding price-like elements for a
// free-text percentage token.
func percentNearPrices(doc *goquery.Document, priceSelectors []string) string {
	var found string
	for _, sel := range priceSelectors {
		doc.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if token := util.FindPercentToken(el.Parent().Text()); token != "" {
				found = token
				return false
			}
			return true
		})
		if found != "" {
			break
		}
	}
	return found
}

// finalize computes derived fields once every enrichment pass has run.
func finalize(d *models.Deal) {
	if d.Discount == "" {
		price, okPrice := util.ParseAmount(d.Price)
		oldPrice, okOld := util.ParseAmount(d.OldPrice)
		if okPrice && okOld && oldPrice > 0 {
			pct := int(math.Round((1 - price/oldPrice) * 100))
			d.Discount = fmt.Sprintf("-%d%%", pct)
		}
	}
	// Always signed, always suffixed, whatever shape the source used.
	if d.Discount != "" {
		d.Discount = util.NormalizeDiscount(d.Discount)
	}
	if d.Store == "" && d.StoreURL != "" {
		d.Store = util.StoreDomain(d.StoreURL)
	}
}

func firstText(scope *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		found := scope.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(found.Text()); text != "" {
			return text
		}
	}
	return ""
}

func firstAttr(scope *goquery.Selection, selectors []string, attr string) string {
	for _, sel := range selectors {
		found := scope.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		if v, ok := found.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
