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

const metacriticBaseURL = "https://www.metacritic.com"

// Metacritic scrapes the Metascore, user score, and critic review excerpts.
type Metacritic struct {
	BaseURL string
	fetcher *fetcher
	proc    *processor.Processor
	config  Config
}

// NewMetacritic creates a Metacritic scraper with the given policy.
func NewMetacritic(config Config) *Metacritic {
	return &Metacritic{
		BaseURL: metacriticBaseURL,
		fetcher: newFetcher(config),
		proc:    processor.New(),
		config:  config.withDefaults(),
	}
}

func (s *Metacritic) Name() string { return "metacritic" }

// Fetch resolves the title through site search and parses the movie page.
func (s *Metacritic) Fetch(ctx context.Context, title string, year int) (*Result, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("title must not be empty")
	}

	searchURL := fmt.Sprintf("%s/search/movie/%s/", s.BaseURL, url.PathEscape(title))
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

func (s *Metacritic) findResult(searchHTML, title string, year int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(searchHTML))
	if err != nil {
		return "", fmt.Errorf("parse search page: %w", err)
	}

	var detailURL string
	doc.Find("div.result_wrap a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
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

// Parse extracts the partial record from a Metacritic movie page. The
// Metascore is a 0-100 critic aggregate and the user score is already 0-10;
// both normalize onto the shared 0-10 scale.
func (s *Metacritic) Parse(pageHTML string) (*models.MovieRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	title := processor.CleanText(doc.Find("h1.product_page_title").First().Text())
	if title == "" {
		title = processor.CleanText(doc.Find("h1").First().Text())
	}
	if title == "" {
		return nil, fmt.Errorf("metacritic page has no recognizable title")
	}

	record := &models.MovieRecord{
		Title:   title,
		Ratings: make(map[string]float64),
	}

	yearText := processor.CleanText(doc.Find("span.release_year").First().Text())
	if year, ok := processor.ExtractYear("(" + yearText + ")"); ok {
		record.Year = year
	} else if year, ok := processor.ExtractYear(s.proc.ExtractTitle(pageHTML)); ok {
		record.Year = year
	}

	record.Director = processor.CleanText(doc.Find("div.director a").First().Text())

	doc.Find("div.summary_cast a").Each(func(i int, sel *goquery.Selection) {
		if i < 5 {
			record.Cast = append(record.Cast, processor.CleanText(sel.Text()))
		}
	})

	doc.Find("div.genres a").Each(func(_ int, sel *goquery.Selection) {
		if genre := processor.CleanText(sel.Text()); genre != "" {
			record.Genres = append(record.Genres, genre)
		}
	})

	record.Plot = processor.CleanText(doc.Find("div.summary_deck").First().Text())

	metascoreText := doc.Find("div.metascore_w").First().Text()
	if score, ok := processor.ExtractRating(processor.CleanText(metascoreText) + "/100"); ok {
		record.Ratings[s.Name()] = score
	}
	userScoreText := doc.Find("div.user_score div.metascore_w").First().Text()
	if score, ok := processor.ExtractRating(processor.CleanText(userScoreText)); ok {
		record.Ratings[s.Name()+"_users"] = score
	}

	doc.Find("div.review_section").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= s.config.MaxReviews {
			return false
		}
		body, _ := sel.Find("div.review_body").First().Html()
		content, err := s.proc.CleanFragment(body)
		if err != nil || content == "" {
			return true
		}
		review := models.Review{
			Source:  s.Name(),
			Author:  processor.CleanText(sel.Find("div.review_critic a").First().Text()),
			Content: content,
			Type:    "critic",
		}
		if score, ok := processor.ExtractRating(sel.Find("div.review_grade").First().Text()); ok {
			review.Rating = score
		}
		record.Reviews = append(record.Reviews, review)
		return true
	})

	return record, nil
}
