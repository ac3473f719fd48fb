package processor

import (
	"regexp"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

// Processor cleans scraped HTML fragments into plain text suitable for
// embedding and normalizes rating strings.
type Processor struct{}

// New creates a new content processor.
func New() *Processor {
	return &Processor{}
}

// CleanFragment converts an HTML fragment (a plot blurb, a review body) into
// whitespace-normalized text. Markup is stripped via markdown conversion so
// emphasis and links degrade to their readable text.
func (p *Processor) CleanFragment(fragment string) (string, error) {
	if fragment == "" {
		return "", nil
	}

	md, err := htmltomarkdown.ConvertString(fragment)
	if err != nil {
		return "", err
	}

	return CleanText(md), nil
}

// ExtractTitle extracts the <title> content from a full HTML page.
func (p *Processor) ExtractTitle(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var title string
	var findTitle func(*html.Node)
	findTitle = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				title = n.FirstChild.Data
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findTitle(c)
		}
	}
	findTitle(doc)

	return strings.TrimSpace(title)
}

// CleanText collapses all runs of whitespace to single spaces.
func CleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

var ratingPatterns = []struct {
	re    *regexp.Regexp
	scale float64 // multiplier to reach the 0-10 scale
}{
	{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*10`), 1},
	{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*5`), 2},
	{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*100`), 0.1},
	{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`), 0.1},
	{regexp.MustCompile(`(\d+(?:\.\d+)?)`), 1},
}

// ExtractRating pulls a numeric score out of text like "8.2/10", "85%" or
// "4/5" and normalizes it to the 0-10 scale. Returns false when no score is
// found. Bare numbers above 10 are assumed to be on a 0-100 scale.
func ExtractRating(text string) (float64, bool) {
	for _, p := range ratingPatterns {
		match := p.re.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		score := value * p.scale
		if score > 10 {
			score = value / 10
		}
		return score, true
	}
	return 0, false
}

// yearPattern matches a parenthesized four-digit release year, e.g.
// "The Matrix (1999)".
var yearPattern = regexp.MustCompile(`\((19|20)\d{2}\)`)

// ExtractYear pulls a release year out of a heading or search-result label.
// Returns false when none is present.
func ExtractYear(text string) (int, bool) {
	match := yearPattern.FindString(text)
	if match == "" {
		return 0, false
	}
	year, err := strconv.Atoi(strings.Trim(match, "()"))
	if err != nil {
		return 0, false
	}
	return year, true
}
