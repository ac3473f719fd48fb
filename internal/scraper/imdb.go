package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mklein/cine-rag/internal/processor"
	"github.com/mklein/cine-rag/pkg/models"
)

const imdbBaseURL = "https://www.imdb.com"

// IMDB scrapes movie metadata and featured reviews from IMDB.
type IMDB struct {
	BaseURL string
	fetcher *fetcher
	proc    *processor.Processor
	config  Config
}

// NewIMDB creates an IMDB scraper with the given policy.
func NewIMDB(config Config) *IMDB {
	return &IMDB{
		BaseURL: imdbBaseURL,
		fetcher: newFetcher(config),
		proc:    processor.New(),
		config:  config.withDefaults(),
	}
}

func (s *IMDB) Name() string { return "imdb" }

// Fetch looks the title up via IMDB search, picks the first result whose
// label matches the requested title and year, and parses its detail page.
func (s *IMDB) Fetch(ctx context.Context, title string, year int) (*Result, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("title must not be empty")
	}

	query := title
	if year != 0 {
		query = fmt.Sprintf("%s %d", title, year)
	}
	searchURL := fmt.Sprintf("%s/find/?q=%s&s=tt&ttype=ft", s.BaseURL, url.QueryEscape(query))

	searchHTML, err := s.fetcher.get(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	detailURL, err := s.findResult(searchHTML, title, year)
	if err != nil {
		return nil, err
	}

	pageHTML, err := s.fetcher.get(ctx, detailURL)
	if err != nil {
		return nil, err
	}

	record, err := s.Parse(pageHTML)
	if err != nil {
		return nil, err
	}

	return &Result{Record: record, PageURL: detailURL, PageHTML: pageHTML}, nil
}

// findResult scans the search page for the first title link matching the
// requested movie.
func (s *IMDB) findResult(searchHTML, title string, year int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(searchHTML))
	if err != nil {
		return "", fmt.Errorf("parse search page: %w", err)
	}

	var detailURL string
	doc.Find(`a[href*="/title/tt"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		label := processor.CleanText(sel.Text())
		if label == "" || !titleMatches(title, label) {
			return true
		}
		if resultYear, ok := processor.ExtractYear(labelContext(sel)); ok && !yearMatches(year, resultYear) {
			return true
		}

		href, _ := sel.Attr("href")
		if i := strings.Index(href, "?"); i >= 0 {
			href = href[:i]
		}
		detailURL = s.BaseURL + href
		return false
	})

	if detailURL == "" {
		return "", ErrNotFound
	}
	return detailURL, nil
}

// labelContext returns the link text plus its parent's text, so a year
// rendered next to the link still participates in matching.
func labelContext(sel *goquery.Selection) string {
	if parent := sel.Parent(); parent.Length() > 0 {
		return processor.CleanText(parent.Text())
	}
	return processor.CleanText(sel.Text())
}

// Parse extracts the partial record from an IMDB title page.
func (s *IMDB) Parse(pageHTML string) (*models.MovieRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	title := processor.CleanText(doc.Find(`h1[data-testid="hero__pageTitle"]`).First().Text())
	if title == "" {
		title = processor.CleanText(doc.Find("h1").First().Text())
	}
	if title == "" {
		return nil, fmt.Errorf("imdb page has no recognizable title")
	}

	record := &models.MovieRecord{
		Title:   title,
		Ratings: make(map[string]float64),
	}

	if year, ok := processor.ExtractYear(s.proc.ExtractTitle(pageHTML)); ok {
		record.Year = year
	}

	record.Director = processor.CleanText(
		doc.Find(`li[data-testid="title-pc-principal-credit"] a`).First().Text())

	doc.Find(`a[data-testid="title-cast-item__actor"]`).Each(func(i int, sel *goquery.Selection) {
		if i < 5 {
			record.Cast = append(record.Cast, processor.CleanText(sel.Text()))
		}
	})

	doc.Find(`div[data-testid="genres"] a`).Each(func(_ int, sel *goquery.Selection) {
		if genre := processor.CleanText(sel.Text()); genre != "" {
			record.Genres = append(record.Genres, genre)
		}
	})

	record.Plot = processor.CleanText(doc.Find(`span[data-testid="plot-xl"]`).First().Text())
	if record.Plot == "" {
		record.Plot = processor.CleanText(doc.Find(`span[data-testid="plot-summary"]`).First().Text())
	}

	scoreText := doc.Find(`div[data-testid="hero-rating-bar__aggregate-rating__score"] span`).First().Text()
	if score, ok := processor.ExtractRating(scoreText); ok {
		record.Ratings[s.Name()] = score
	}

	doc.Find(`div[data-testid="review-card"]`).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= s.config.MaxReviews {
			return false
		}
		body, _ := sel.Find(`div[data-testid="review-overflow"]`).First().Html()
		content, err := s.proc.CleanFragment(body)
		if err != nil || content == "" {
			return true
		}
		review := models.Review{
			Source:  s.Name(),
			Author:  processor.CleanText(sel.Find(`a[data-testid="review-author"]`).First().Text()),
			Content: content,
			Type:    "user",
		}
		if score, ok := processor.ExtractRating(sel.Find("span.review-rating").First().Text()); ok {
			review.Rating = score
		}
		record.Reviews = append(record.Reviews, review)
		return true
	})

	return record, nil
}
