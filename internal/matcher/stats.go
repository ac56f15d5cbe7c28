package matcher

import (
	"sort"

	"nodeseek_bot/internal/model"
)

// KeywordCount pairs a keyword with how many posts it matched.
type KeywordCount struct {
	Keyword string
	Count   int
}

// Summary aggregates matching and delivery figures over a window of posts.
// It is used only for reporting and has no side effects.
type Summary struct {
	TotalPosts     int
	MatchedPosts   int
	UnmatchedPosts int
	MatchRate      float64 // percentage, 0-100
	PushedPosts    int
	PushedToday    int
	TopKeywords    []KeywordCount
}

// Stats recomputes match counts over the given posts with the current
// subscription set and configuration. pushedToday is supplied by the
// caller, which knows the reporting window.
func Stats(posts []model.Post, subs []model.Subscription, cfg model.Config, pushedToday int) Summary {
	matched := 0
	pushed := 0
	counts := make(map[string]int)

	for _, post := range posts {
		if post.PushStatus == model.StatusPushed {
			pushed++
		}
		res := Match(post, subs, cfg)
		if !res.Matched {
			continue
		}
		matched++
		for _, kw := range res.Keywords {
			counts[kw]++
		}
	}

	top := make([]KeywordCount, 0, len(counts))
	for kw, n := range counts {
		top = append(top, KeywordCount{Keyword: kw, Count: n})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Keyword < top[j].Keyword
	})
	if len(top) > 10 {
		top = top[:10]
	}

	rate := 0.0
	if len(posts) > 0 {
		rate = float64(matched) / float64(len(posts)) * 100
	}

	return Summary{
		TotalPosts:     len(posts),
		MatchedPosts:   matched,
		UnmatchedPosts: len(posts) - matched,
		MatchRate:      rate,
		PushedPosts:    pushed,
		PushedToday:    pushedToday,
		TopKeywords:    top,
	}
}
