package matcher

import (
	"strings"
	"testing"

	"nodeseek_bot/internal/model"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		sub       model.Subscription
		wantErrs  int
		wantFirst string
	}{
		{
			name: "valid single keyword",
			sub:  model.Subscription{Keyword1: "vps"},
		},
		{
			name: "valid cjk keyword",
			sub:  model.Subscription{Keyword1: "甲骨文"},
		},
		{
			name: "valid three keywords with filters",
			sub:  model.Subscription{Keyword1: "vps", Keyword2: "优惠", Keyword3: "年付", Creator: "alice", Category: "trade"},
		},
		{
			name: "valid creator only",
			sub:  model.Subscription{Creator: "alice"},
		},
		{
			name: "valid category only",
			sub:  model.Subscription{Category: "trade"},
		},
		{
			name:      "completely empty",
			sub:       model.Subscription{},
			wantErrs:  1,
			wantFirst: "at least one",
		},
		{
			name:      "keyword too short",
			sub:       model.Subscription{Keyword1: "a"},
			wantErrs:  1,
			wantFirst: "shorter than 2",
		},
		{
			name:      "keyword too long",
			sub:       model.Subscription{Keyword1: strings.Repeat("x", 51)},
			wantErrs:  1,
			wantFirst: "longer than 50",
		},
		{
			name: "keyword at max length",
			sub:  model.Subscription{Keyword1: strings.Repeat("x", 50)},
		},
		{
			name:      "keyword with forbidden characters",
			sub:       model.Subscription{Keyword1: "vps<script>"},
			wantErrs:  1,
			wantFirst: "invalid characters",
		},
		{
			name: "keyword with hyphen underscore and dot",
			sub:  model.Subscription{Keyword1: "k8s-v1.2_beta"},
		},
		{
			name:      "unknown category",
			sub:       model.Subscription{Keyword1: "vps", Category: "nonsense"},
			wantErrs:  1,
			wantFirst: "unknown category",
		},
		{
			name: "category is case insensitive",
			sub:  model.Subscription{Keyword1: "vps", Category: "Trade"},
		},
		{
			name:      "multiple violations reported together",
			sub:       model.Subscription{Keyword1: "a", Keyword2: "b!", Category: "bogus"},
			wantErrs:  3,
			wantFirst: "shorter than 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.sub)
			if len(got) != tt.wantErrs {
				t.Fatalf("expected %d violations, got %d: %v", tt.wantErrs, len(got), got)
			}
			if tt.wantFirst != "" && !strings.Contains(got[0], tt.wantFirst) {
				t.Errorf("first violation %q does not mention %q", got[0], tt.wantFirst)
			}
		})
	}
}
