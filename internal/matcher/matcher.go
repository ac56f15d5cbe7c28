// Package matcher evaluates posts against keyword subscriptions.
//
// All functions are pure: they read the post, the subscription set and the
// configuration switches, and never touch storage.
package matcher

import (
	"strings"
	"unicode"

	"github.com/samber/lo"

	"nodeseek_bot/internal/model"
)

// Result is the outcome of matching one post against the subscription set.
type Result struct {
	Matched  bool
	Keywords []string
	SubID    int64
}

// Match evaluates a post against subscriptions in stored order. All
// keywords of a subscription must be present (AND semantics); the search
// text is the title alone when cfg.OnlyTitle is set, otherwise title plus
// memo. Creator and category filters, when present, must additionally pass
// a symmetric partial-containment check or the subscription is skipped.
// The first subscription passing every check wins and ends the scan.
func Match(post model.Post, subs []model.Subscription, cfg model.Config) Result {
	searchText := post.Title
	if !cfg.OnlyTitle {
		searchText = post.Title + " " + post.Memo
	}
	normalized := normalizeText(searchText)

	for _, sub := range subs {
		keywords := sub.Keywords()
		if len(keywords) == 0 {
			// Creator/category-only subscription: no keyword constraint.
			if sub.Creator == "" && sub.Category == "" {
				continue
			}
		}

		allMatch := lo.EveryBy(keywords, func(kw string) bool {
			return containsKeyword(normalized, normalizeText(kw))
		})
		if !allMatch {
			continue
		}

		if sub.Creator != "" && !partialContains(post.Creator, sub.Creator) {
			continue
		}
		if sub.Category != "" && !partialContains(post.Category, sub.Category) {
			continue
		}

		return Result{
			Matched:  true,
			Keywords: lo.Uniq(keywords),
			SubID:    sub.ID,
		}
	}

	return Result{}
}

// containsKeyword reports whether the keyword occurs in the text, either
// as a literal substring or as an in-order character sequence. The segment
// check substitutes for proper tokenization: the dominant feed language
// has no whitespace word boundaries.
func containsKeyword(text, keyword string) bool {
	if keyword == "" {
		return false
	}
	if strings.Contains(text, keyword) {
		return true
	}
	return segmentMatch(text, keyword)
}

// segmentMatch reports whether every rune of the keyword appears in the
// text in the same relative order.
func segmentMatch(text, keyword string) bool {
	runes := []rune(text)
	pos := 0
	for _, kr := range keyword {
		found := false
		for ; pos < len(runes); pos++ {
			if runes[pos] == kr {
				pos++
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// partialContains is the symmetric containment test used for creator and
// category filters: either normalized value containing the other passes.
func partialContains(postValue, filterValue string) bool {
	p := normalizeText(postValue)
	f := normalizeText(filterValue)
	if p == "" || f == "" {
		return false
	}
	return strings.Contains(p, f) || strings.Contains(f, p)
}

// normalizeText lowercases and strips everything that is not a letter or
// digit, including all whitespace. CJK characters count as letters.
func normalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
