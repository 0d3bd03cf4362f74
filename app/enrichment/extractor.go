package enrichment

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/trailmark/city-enrichment/app/database"
)

const (
	maxLeadParagraphs    = 3
	maxSectionParagraphs = 5
	maxPOIsPerCategory   = 15
	maxMediaRefs         = 10
)

// sectionHeadings maps article section titles to the content fields they fill
var sectionHeadings = map[string]string{
	"history":   "history",
	"geography": "geography",
	"culture":   "culture",
}

// poiHeadings are the section titles scanned for point-of-interest lists
var poiHeadings = []string{
	"tourism",
	"main sights",
	"landmarks",
	"attractions",
	"points of interest",
}

// Extractor turns raw article HTML into the structured enrichment payload.
// Extraction is lossy on purpose: any field it cannot find stays empty and
// the merge decides what that means for the stored record.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Run(data []byte) (*ExtractedContent, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	root := doc.Find("#mw-content-text .mw-parser-output")
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	content := &ExtractedContent{
		Description:      e.extractLead(root),
		PointsOfInterest: e.extractPointsOfInterest(root),
		Media:            e.extractMedia(root),
	}

	if content.Description == "" {
		content.Description = e.readabilityFallback(data)
	}

	sections := e.extractSections(root)
	content.History = sections["history"]
	content.Geography = sections["geography"]
	content.Culture = sections["culture"]

	slog.Debug("Content extracted",
		"description_length", len(content.Description),
		"poi_categories", len(content.PointsOfInterest),
		"media", len(content.Media))

	return content, nil
}

// extractLead collects the paragraphs before the first section heading
func (e *Extractor) extractLead(root *goquery.Selection) string {
	var paragraphs []string

	root.Children().EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if isHeadingBlock(s) {
			return false
		}
		if s.Is("p") && !s.HasClass("mw-empty-elt") {
			if text := normalizeText(s.Text()); text != "" {
				paragraphs = append(paragraphs, text)
			}
		}
		return len(paragraphs) < maxLeadParagraphs
	})

	return strings.Join(paragraphs, "\n\n")
}

// extractSections collects paragraph text for each recognized section heading
func (e *Extractor) extractSections(root *goquery.Selection) map[string]string {
	sections := make(map[string]string)

	root.Find("h2, h3").Each(func(_ int, heading *goquery.Selection) {
		field, ok := sectionHeadings[normalizeHeading(heading)]
		if !ok || sections[field] != "" {
			return
		}

		var paragraphs []string
		headingBlock(heading).NextAll().EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if isHeadingBlock(s) {
				return false
			}
			if s.Is("p") && !s.HasClass("mw-empty-elt") {
				if text := normalizeText(s.Text()); text != "" {
					paragraphs = append(paragraphs, text)
				}
			}
			return len(paragraphs) < maxSectionParagraphs
		})

		if len(paragraphs) > 0 {
			sections[field] = strings.Join(paragraphs, "\n\n")
		}
	})

	return sections
}

// extractPointsOfInterest gathers linked list entries under sight-seeing
// sections, grouped by the section heading as the category
func (e *Extractor) extractPointsOfInterest(root *goquery.Selection) map[string][]database.PointOfInterest {
	groups := make(map[string][]database.PointOfInterest)

	root.Find("h2, h3").Each(func(_ int, heading *goquery.Selection) {
		title := normalizeHeading(heading)
		if !isPOIHeading(title) {
			return
		}

		category := strings.ReplaceAll(title, " ", "_")
		if _, seen := groups[category]; seen {
			return
		}

		var pois []database.PointOfInterest
		headingBlock(heading).NextAll().EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if isHeadingBlock(s) {
				return false
			}
			s.Find("li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
				anchor := li.Find("a").First()
				name := normalizeText(anchor.Text())
				if name == "" {
					name = normalizeText(li.Text())
				}
				if name != "" {
					href, _ := anchor.Attr("href")
					pois = append(pois, database.PointOfInterest{Name: name, Link: absoluteURL(href)})
				}
				return len(pois) < maxPOIsPerCategory
			})
			return len(pois) < maxPOIsPerCategory
		})

		if len(pois) > 0 {
			groups[category] = pois
		}
	})

	if len(groups) == 0 {
		return nil
	}
	return groups
}

// extractMedia collects image references hosted on the provider's media CDN
func (e *Extractor) extractMedia(root *goquery.Selection) []string {
	var media []string
	seen := make(map[string]bool)

	root.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			src, _ = img.Attr("data-src")
		}

		src = absoluteURL(src)
		if src == "" || !strings.Contains(src, "upload.wikimedia.org") || seen[src] {
			return true
		}

		seen[src] = true
		media = append(media, src)
		return len(media) < maxMediaRefs
	})

	return media
}

// readabilityFallback extracts a description from the whole page when the
// lead paragraphs are unusable
func (e *Extractor) readabilityFallback(data []byte) string {
	article, err := readability.FromReader(bytes.NewReader(data), nil)
	if err != nil {
		slog.Debug("Readability fallback failed", "error", err)
		return ""
	}

	if excerpt := normalizeText(article.Excerpt); excerpt != "" {
		return excerpt
	}

	text := normalizeText(article.TextContent)
	if len(text) > 1000 {
		text = text[:1000]
	}
	return text
}

// headingBlock returns the sibling-level element for a heading: modern
// article markup wraps headings in div.mw-heading containers
func headingBlock(heading *goquery.Selection) *goquery.Selection {
	parent := heading.Parent()
	if parent.HasClass("mw-heading") {
		return parent
	}
	return heading
}

func isHeadingBlock(s *goquery.Selection) bool {
	return s.Is("h2") || s.HasClass("mw-heading")
}

func normalizeHeading(heading *goquery.Selection) string {
	text := heading.Text()
	if headline := heading.Find(".mw-headline"); headline.Length() > 0 {
		text = headline.Text()
	}
	// Strip the "[edit]" suffix some renderings include
	if idx := strings.Index(text, "["); idx > 0 {
		text = text[:idx]
	}
	return strings.ToLower(normalizeText(text))
}

func isPOIHeading(title string) bool {
	for _, heading := range poiHeadings {
		if title == heading {
			return true
		}
	}
	return false
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func absoluteURL(href string) string {
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(href, "/"):
		return "https://en.wikipedia.org" + href
	default:
		return href
	}
}
