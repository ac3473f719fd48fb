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

const rottenTomatoesBaseURL = "https://www.rottentomatoes.com"

// RottenTomatoes scrapes the Tomatometer, movie info, and critic quotes.
type RottenTomatoes struct {
	BaseURL string
	fetcher *fetcher
	proc    *processor.Processor
	config  Config
}

// NewRottenTomatoes creates a Rotten Tomatoes scraper with the given policy.
func NewRottenTomatoes(config Config) *RottenTomatoes {
	return &RottenTomatoes{
		BaseURL: rottenTomatoesBaseURL,
		fetcher: newFetcher(config),
		proc:    processor.New(),
		config:  config.withDefaults(),
	}
}

func (s *RottenTomatoes) Name() string { return "rottentomatoes" }

// Fetch resolves the title through site search and parses the movie page.
func (s *RottenTomatoes) Fetch(ctx context.Context, title string, year int) (*Result, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("title must not be empty")
	}

	searchURL := fmt.Sprintf("%s/search?search=%s", s.BaseURL, url.QueryEscape(title))
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

func (s *RottenTomatoes) findResult(searchHTML, title string, year int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(searchHTML))
	if err != nil {
		return "", fmt.Errorf("parse search page: %w", err)
	}

	var detailURL string
	doc.Find(`a[href*="/m/"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		label := processor.CleanText(sel.Text())
		if label == "" || !titleMatches(title, label) {
			return true
		}
		if resultYear, ok := processor.ExtractYear(labelContext(sel)); ok && !yearMatches(year, resultYear) {
			return true
		}

		href, _ := sel.Attr("href")
		if strings.HasPrefix(href, "/") {
			href = s.BaseURL + href
		}
		detailURL = href
		return false
	})

	if detailURL == "" {
		return "", ErrNotFound
	}
	return detailURL, nil
}

// Parse extracts the partial record from a Rotten Tomatoes movie page.
// Tomatometer and audience percentages are read off the score-board element
// and normalized to the 0-10 scale.
func (s *RottenTomatoes) Parse(pageHTML string) (*models.MovieRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	title := processor.CleanText(doc.Find(`h1[data-qa="score-panel-movie-title"]`).First().Text())
	if title == "" {
		title = processor.CleanText(doc.Find("h1").First().Text())
	}
	if title == "" {
		return nil, fmt.Errorf("rotten tomatoes page has no recognizable title")
	}

	record := &models.MovieRecord{
		Title:   title,
		Ratings: make(map[string]float64),
	}

	if year, ok := processor.ExtractYear(s.proc.ExtractTitle(pageHTML)); ok {
		record.Year = year
	}

	record.Director = processor.CleanText(doc.Find(`a[data-qa="movie-info-director"]`).First().Text())

	genreText := processor.CleanText(doc.Find(`span[data-qa="movie-info-item-genre"]`).First().Text())
	for _, genre := range strings.Split(genreText, ",") {
		if g := strings.TrimSpace(genre); g != "" {
			record.Genres = append(record.Genres, g)
		}
	}

	doc.Find(`a[data-qa="cast-member"]`).Each(func(i int, sel *goquery.Selection) {
		if i < 5 {
			record.Cast = append(record.Cast, processor.CleanText(sel.Text()))
		}
	})

	record.Plot = processor.CleanText(doc.Find(`div[data-qa="movie-info-synopsis"]`).First().Text())

	scoreBoard := doc.Find("score-board").First()
	if raw, ok := scoreBoard.Attr("tomatometerscore"); ok {
		if score, ok := processor.ExtractRating(raw + "%"); ok {
			record.Ratings[s.Name()] = score
		}
	}
	if raw, ok := scoreBoard.Attr("audiencescore"); ok {
		if score, ok := processor.ExtractRating(raw + "%"); ok {
			record.Ratings[s.Name()+"_audience"] = score
		}
	}

	doc.Find(`div[data-qa="review-item"]`).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= s.config.MaxReviews {
			return false
		}
		body, _ := sel.Find(`p[data-qa="review-quote"]`).First().Html()
		content, err := s.proc.CleanFragment(body)
		if err != nil || content == "" {
			return true
		}
		record.Reviews = append(record.Reviews, models.Review{
			Source:  s.Name(),
			Author:  processor.CleanText(sel.Find(`a[data-qa="review-critic-link"]`).First().Text()),
			Content: content,
			Type:    "critic",
		})
		return true
	})

	return record, nil
}
