package bot

import (
	"fmt"
	"strconv"
	"strings"

	"nodeseek_bot/internal/model"
)

// ParseAddArgs parses the arguments of /add. Positional tokens become
// keywords (up to three); "creator:x" and "category:x" tokens become
// filters. Validation happens separately.
func ParseAddArgs(args string) (model.Subscription, error) {
	var sub model.Subscription
	var keywords []string

	for _, token := range strings.Fields(args) {
		switch {
		case strings.HasPrefix(token, "creator:"):
			sub.Creator = strings.TrimPrefix(token, "creator:")
		case strings.HasPrefix(token, "category:"):
			sub.Category = strings.TrimPrefix(token, "category:")
		default:
			keywords = append(keywords, token)
		}
	}

	if len(keywords) > 3 {
		return model.Subscription{}, fmt.Errorf("at most 3 keywords are supported, got %d", len(keywords))
	}

	for i, kw := range keywords {
		switch i {
		case 0:
			sub.Keyword1 = kw
		case 1:
			sub.Keyword2 = kw
		case 2:
			sub.Keyword3 = kw
		}
	}
	return sub, nil
}

// ParseIDArg extracts a numeric ID from a command argument string.
func ParseIDArg(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("id is required")
	}
	id, err := strconv.ParseInt(strings.Fields(s)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
