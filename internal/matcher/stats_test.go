package matcher

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"nodeseek_bot/internal/model"
)

func TestStats(t *testing.T) {
	subs := []model.Subscription{
		{ID: 1, Keyword1: "vps"},
		{ID: 2, Keyword1: "独服"},
	}

	posts := []model.Post{
		{Title: "甲骨文 VPS 优惠", PushStatus: model.StatusPushed},
		{Title: "出一台 VPS", PushStatus: model.StatusPushed},
		{Title: "独服求推荐", PushStatus: model.StatusSkipped},
		{Title: "日常灌水", PushStatus: model.StatusSkipped},
	}

	got := Stats(posts, subs, model.Config{}, 2)

	want := Summary{
		TotalPosts:     4,
		MatchedPosts:   3,
		UnmatchedPosts: 1,
		MatchRate:      75,
		PushedPosts:    2,
		PushedToday:    2,
		TopKeywords: []KeywordCount{
			{Keyword: "vps", Count: 2},
			{Keyword: "独服", Count: 1},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}
}

func TestStatsEmpty(t *testing.T) {
	got := Stats(nil, nil, model.Config{}, 0)

	want := Summary{TopKeywords: []KeywordCount{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}
}

func TestStatsTopKeywordOrdering(t *testing.T) {
	subs := []model.Subscription{
		{ID: 1, Keyword1: "aa"},
		{ID: 2, Keyword1: "bb"},
	}
	// aa and bb each match once; ties break alphabetically.
	posts := []model.Post{
		{Title: "aa only here"},
		{Title: "bb only here"},
	}

	got := Stats(posts, subs, model.Config{}, 0)
	want := []KeywordCount{{Keyword: "aa", Count: 1}, {Keyword: "bb", Count: 1}}
	if diff := cmp.Diff(want, got.TopKeywords); diff != "" {
		t.Errorf("TopKeywords mismatch (-want +got):\n%s", diff)
	}
}
