package bot

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"nodeseek_bot/internal/matcher"
	"nodeseek_bot/internal/model"
)

const helpText = `NodeSeek monitor bot.

Commands:
/start - bind this chat and show status
/bind - bind this chat to receive notifications
/stop - stop pushing
/resume - resume pushing
/list - list all subscriptions
/add <kw1> [kw2] [kw3] [creator:x] [category:x] - add a subscription
/delete <id> - delete a subscription
/post - show the latest posts and their status
/stats - show matching statistics
/help - show this reference`

// FormatSubscriptionList renders the subscription list reply.
func FormatSubscriptionList(subs []model.Subscription) string {
	if len(subs) == 0 {
		return "No subscriptions yet. Use /add to create one."
	}

	var b strings.Builder
	b.WriteString("Subscriptions:\n")
	for i, sub := range subs {
		fmt.Fprintf(&b, "\n%d. ID %d: %s\n", i+1, sub.ID, keywordLabel(sub))
		if sub.Creator != "" {
			fmt.Fprintf(&b, "   creator: %s\n", sub.Creator)
		}
		if sub.Category != "" {
			fmt.Fprintf(&b, "   category: %s\n", sub.Category)
		}
	}
	return b.String()
}

// FormatSubscriptionAdded renders the confirmation for a created subscription.
func FormatSubscriptionAdded(sub model.Subscription) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subscription added.\nID: %d\nKeywords: %s", sub.ID, keywordLabel(sub))
	if sub.Creator != "" {
		fmt.Fprintf(&b, "\nCreator: %s", sub.Creator)
	}
	if sub.Category != "" {
		fmt.Fprintf(&b, "\nCategory: %s", sub.Category)
	}
	return b.String()
}

// FormatRecentPosts renders the /post reply.
func FormatRecentPosts(posts []model.Post) string {
	if len(posts) == 0 {
		return "No posts yet."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Latest %d posts:\n", len(posts))
	for i, p := range posts {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, p.Title)
		fmt.Fprintf(&b, "   author: %s | category: %s\n", p.Creator, p.Category)
		fmt.Fprintf(&b, "   status: %s\n", p.PushStatus.Label())
		fmt.Fprintf(&b, "   published: %s\n", p.PubDate.Format("2006-01-02 15:04 UTC"))
	}
	return b.String()
}

// FormatStats renders the /stats reply.
func FormatStats(s matcher.Summary) string {
	var b strings.Builder
	b.WriteString("Statistics:\n")
	fmt.Fprintf(&b, "posts: %d (matched %d, unmatched %d)\n", s.TotalPosts, s.MatchedPosts, s.UnmatchedPosts)
	fmt.Fprintf(&b, "match rate: %.1f%%\n", s.MatchRate)
	fmt.Fprintf(&b, "pushed: %d (today: %d)\n", s.PushedPosts, s.PushedToday)
	if len(s.TopKeywords) > 0 {
		labels := lo.Map(s.TopKeywords, func(kc matcher.KeywordCount, _ int) string {
			return fmt.Sprintf("%s (%d)", kc.Keyword, kc.Count)
		})
		b.WriteString("top keywords: " + strings.Join(labels, ", "))
	}
	return b.String()
}

func keywordLabel(sub model.Subscription) string {
	kws := sub.Keywords()
	if len(kws) == 0 {
		return "(no keywords)"
	}
	return strings.Join(kws, " + ")
}
