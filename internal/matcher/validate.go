package matcher

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"nodeseek_bot/internal/model"
)

// Categories the feed source publishes. Category filters must use one of
// these values.
var ValidCategories = []string{
	"daily", "tech", "info", "review", "trade", "carpool",
	"promotion", "life", "dev", "photo-share", "expose", "sandbox",
}

var keywordCharsRe = regexp.MustCompile(`^[\w\p{Han}\s\-.]+$`)

// Validate checks a subscription against the input invariants and returns
// a list of human-readable violations. An empty list means the
// subscription is acceptable.
//
// Rules: at least one of keyword1, creator or category must be present;
// every present keyword is 2-50 characters drawn from letters, digits,
// CJK characters, whitespace, hyphen, underscore and dot; a category, if
// present, must be one of ValidCategories.
func Validate(sub model.Subscription) []string {
	var errs []string

	keywords := sub.Keywords()
	if len(keywords) == 0 && sub.Creator == "" && sub.Category == "" {
		errs = append(errs, "at least one keyword, creator or category is required")
	}

	for _, kw := range keywords {
		n := utf8.RuneCountInString(strings.TrimSpace(kw))
		switch {
		case n < 2:
			errs = append(errs, fmt.Sprintf("keyword %q is shorter than 2 characters", kw))
		case utf8.RuneCountInString(kw) > 50:
			errs = append(errs, fmt.Sprintf("keyword %q is longer than 50 characters", kw))
		}
		if !keywordCharsRe.MatchString(kw) {
			errs = append(errs, fmt.Sprintf("keyword %q contains invalid characters", kw))
		}
	}

	if sub.Category != "" && !isValidCategory(sub.Category) {
		errs = append(errs, fmt.Sprintf("unknown category %q, valid: %s",
			sub.Category, strings.Join(ValidCategories, ", ")))
	}

	return errs
}

func isValidCategory(c string) bool {
	for _, v := range ValidCategories {
		if strings.EqualFold(c, v) {
			return true
		}
	}
	return false
}
