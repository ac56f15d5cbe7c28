package fetcher

import (
	"html"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Placeholder values substituted when an item carries no usable
// creator or category and secondary extraction finds nothing either.
const (
	UnknownCreator  = "unknown author"
	DefaultCategory = "default category"
)

// RawItem is one parsed feed item. It is transient: produced by Parse,
// consumed by the pipeline, never persisted as-is.
type RawItem struct {
	Title       string
	Description string
	Link        string
	Creator     string
	Category    string
	PubDate     time.Time
}

var (
	tagRe      = regexp.MustCompile(`<[^>]*>`)
	creatorRe  = regexp.MustCompile(`(?i)(?:author|作者)[:：]\s*(\S+)`)
	categoryRe = regexp.MustCompile(`(?i)(?:category|分类)[:：]\s*(\S+)`)
)

// Fallback layouts tried when the feed's own date parser gives up.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Parse extracts items from the raw feed document. The document is often
// partially broken, so extraction is lenient: an item missing any of
// title, description, link or publish date is dropped (logged, not fatal);
// creator and category fall back first to labeled patterns inside the
// description ("author: X" / "作者: X") and then to fixed placeholders;
// an unparseable publish date is replaced with the current time.
func Parse(raw string, log *slog.Logger) ([]RawItem, error) {
	feed, err := gofeed.NewParser().ParseString(raw)
	if err != nil {
		return nil, err
	}

	items := make([]RawItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		title := cleanText(it.Title)
		desc := cleanText(it.Description)
		link := strings.TrimSpace(it.Link)
		if title == "" || desc == "" || link == "" || (it.Published == "" && it.PublishedParsed == nil) {
			log.Warn("dropping incomplete feed item", "title", title, "link", link)
			continue
		}

		items = append(items, RawItem{
			Title:       title,
			Description: desc,
			Link:        link,
			Creator:     itemCreator(it, desc),
			Category:    itemCategory(it, desc),
			PubDate:     itemPubDate(it),
		})
	}
	return items, nil
}

func itemCreator(it *gofeed.Item, desc string) string {
	for _, a := range it.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			return cleanText(a.Name)
		}
	}
	if it.DublinCoreExt != nil {
		for _, c := range it.DublinCoreExt.Creator {
			if strings.TrimSpace(c) != "" {
				return cleanText(c)
			}
		}
	}
	if m := creatorRe.FindStringSubmatch(desc); m != nil {
		return m[1]
	}
	return UnknownCreator
}

func itemCategory(it *gofeed.Item, desc string) string {
	for _, c := range it.Categories {
		if strings.TrimSpace(c) != "" {
			return cleanText(c)
		}
	}
	if m := categoryRe.FindStringSubmatch(desc); m != nil {
		return m[1]
	}
	return DefaultCategory
}

func itemPubDate(it *gofeed.Item) time.Time {
	if it.PublishedParsed != nil {
		return it.PublishedParsed.UTC()
	}
	s := strings.TrimSpace(it.Published)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}

// cleanText strips embedded markup and decodes character entities.
func cleanText(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(s)
}
