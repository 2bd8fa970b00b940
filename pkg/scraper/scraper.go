package scraper

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/xhad/contractqa/internal/logger"
	"github.com/xhad/contractqa/internal/models"
	"github.com/xhad/contractqa/internal/types"
)

type ScraperConfig struct {
	MaxDepth          int
	RateLimit         float64 // requests per second
	UserAgent         string
	Source            string
	IgnorePatterns    []string
	AllowedExtensions []string
	Timeout           time.Duration
	// StartID is the contract id given to the first fetched filing.
	StartID    int
	OnProgress func(url string)
}

// Scraper fetches contract filings published as HTML, such as SEC EDGAR
// exhibits, and splits them into paragraphs. It is not safe for concurrent
// use.
type Scraper struct {
	config  ScraperConfig
	client  *http.Client
	limiter *rate.Limiter
	nextID  int
}

var blankLines = regexp.MustCompile(`\n\s*\n`)

func NewWithConfig(config ScraperConfig) (*Scraper, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5 // EDGAR fair access allows 10 requests per second
	}
	if config.RateLimit < 0 {
		return nil, fmt.Errorf("invalid rate limit %v", config.RateLimit)
	}
	if len(config.AllowedExtensions) == 0 {
		config.AllowedExtensions = []string{".htm", ".html", ".txt", "/"}
	}

	return &Scraper{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		nextID:  config.StartID,
	}, nil
}

// Scrape fetches the filing at rawURL and, up to MaxDepth, the same-host
// filings it links to. A failure to fetch rawURL itself is an
// IngestionError; failures on linked pages are logged and skipped.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) ([]models.Document, error) {
	root, err := url.Parse(rawURL)
	if err != nil || root.Host == "" {
		return nil, &types.IngestionError{Path: rawURL, Err: fmt.Errorf("invalid URL")}
	}

	c := &crawl{
		scraper: s,
		host:    root.Host,
		visited: make(map[string]bool),
	}
	if err := c.visit(ctx, root.String(), 0); err != nil {
		return nil, &types.IngestionError{Path: rawURL, Err: err}
	}
	return c.documents, nil
}

type crawl struct {
	scraper   *Scraper
	host      string
	visited   map[string]bool
	documents []models.Document
}

func (s *Scraper) shouldProcessURL(u *url.URL, host string) bool {
	// Check if URL is from the same host
	if u.Host != host {
		return false
	}

	// Check extensions
	path := strings.ToLower(u.Path)
	validExt := false
	for _, allowedExt := range s.config.AllowedExtensions {
		if strings.HasSuffix(path, allowedExt) {
			validExt = true
			break
		}
	}
	if !validExt {
		return false
	}

	// Check ignore patterns
	for _, pattern := range s.config.IgnorePatterns {
		if strings.Contains(u.String(), pattern) {
			return false
		}
	}

	return true
}

func (c *crawl) visit(ctx context.Context, urlStr string, depth int) error {
	s := c.scraper
	if depth > s.config.MaxDepth || c.visited[urlStr] {
		return nil
	}
	c.visited[urlStr] = true

	if s.config.OnProgress != nil {
		s.config.OnProgress(urlStr)
	}

	doc, err := s.fetch(ctx, urlStr)
	if err != nil {
		return err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	paragraphs := extractParagraphs(doc)
	if len(paragraphs) > 0 {
		c.documents = append(c.documents, models.Document{
			ID:         s.nextID,
			Title:      title,
			Source:     s.config.Source,
			URL:        urlStr,
			Paragraphs: paragraphs,
		})
		logger.Debug("fetched %s (%d paragraphs) as contract %d", urlStr, len(paragraphs), s.nextID)
		s.nextID++
	}

	if depth == s.config.MaxDepth {
		return nil
	}

	base, err := url.Parse(urlStr)
	if err != nil {
		return err
	}

	// Find and follow links
	doc.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		href, _ := selection.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			log.Printf("Error parsing URL: %v", err)
			return
		}

		link := base.ResolveReference(ref)
		link.Fragment = ""
		if !s.shouldProcessURL(link, c.host) {
			return
		}

		if err := c.visit(ctx, link.String(), depth+1); err != nil {
			log.Printf("Error fetching filing: %v", err)
		}
	})

	return ctx.Err()
}

func (s *Scraper) fetch(ctx context.Context, urlStr string) (*goquery.Document, error) {
	// Apply rate limiting
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	if s.config.UserAgent != "" {
		req.Header.Set("User-Agent", s.config.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, urlStr)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

// extractParagraphs returns the <p> elements of the body. Filings without
// them, such as plain-text exhibits wrapped in <pre>, are split on blank lines.
func extractParagraphs(doc *goquery.Document) []models.Paragraph {
	var paragraphs []models.Paragraph

	doc.Find("body p").Each(func(i int, selection *goquery.Selection) {
		paragraphs = append(paragraphs, models.Paragraph{
			Index: i,
			Text:  cleanContent(selection.Text()),
		})
	})
	if hasText(paragraphs) {
		return paragraphs
	}

	body := doc.Find("body")
	body.Find("script, style").Remove()
	paragraphs = paragraphs[:0]
	for i, block := range blankLines.Split(body.Text(), -1) {
		paragraphs = append(paragraphs, models.Paragraph{
			Index: i,
			Text:  cleanContent(block),
		})
	}
	if hasText(paragraphs) {
		return paragraphs
	}
	return nil
}

func cleanContent(content string) string {
	// Remove extra whitespace
	return strings.Join(strings.Fields(content), " ")
}

func hasText(paragraphs []models.Paragraph) bool {
	for _, p := range paragraphs {
		if p.Text != "" {
			return true
		}
	}
	return false
}
