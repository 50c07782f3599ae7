package dislocation

import (
	"strings"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

type categoryRule struct {
	category domain.Category
	terms    []string
}

// Checked in order; the first rule with any matching term wins.
var categoryRules = []categoryRule{
	{domain.CategoryCrypto, []string{"bitcoin", "ethereum", "crypto", "token", "defi", "nft", "solana", "btc", "eth"}},
	{domain.CategoryPolitics, []string{"trump", "biden", "election", "congress", "senate", "vote", "political"}},
	{domain.CategoryEconomy, []string{"fed", "rate", "inflation", "gdp", "economy", "recession", "market"}},
	{domain.CategoryTech, []string{"ai", "tech", "apple", "google", "nvidia", "openai", "microsoft"}},
	{domain.CategorySports, []string{"nba", "nfl", "soccer", "sports", "game", "championship"}},
}

// DetectCategory classifies text by plain substring matching. Short terms
// such as "ai" or "eth" also match inside longer words.
func DetectCategory(text string) domain.Category {
	lower := strings.ToLower(text)
	for _, rule := range categoryRules {
		for _, term := range rule.terms {
			if strings.Contains(lower, term) {
				return rule.category
			}
		}
	}
	return domain.CategoryGeneral
}
