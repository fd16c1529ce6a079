package consent

import "strings"

type tierPattern struct {
	tier        string
	keywords    []string
	description string
}

// Keyword tables checked from most to least intrusive: when a suggestion
// matches multiple tiers it classifies at the highest one. Matching is plain
// substring containment on the lowercased text, so "trying" matches "try".
var classificationPatterns = []tierPattern{
	{
		tier: TierAutonomous,
		keywords: []string{
			"i've already", "i have already", "done for you", "automatically",
			"i went ahead", "on your behalf", "i've scheduled", "i've sent",
			"i've booked", "i've ordered", "executed", "completed for you",
		},
		description: "Actions taken or to be taken autonomously by the system",
	},
	{
		tier: TierActive,
		keywords: []string{
			"i can", "i'll", "i will", "let me", "shall i", "want me to",
			"i could", "would you like me to", "i'm able to", "allow me to",
			"i'll handle", "i'll set up", "i'll arrange", "i'll create",
			"schedule for you", "send for you", "book for you",
		},
		description: "System offers to perform actions on behalf of the user",
	},
	{
		tier: TierSuggestive,
		keywords: []string{
			"try", "consider", "you should", "you could", "you might want to",
			"recommend", "suggest", "it would help to", "a good approach",
			"one strategy", "you may want", "it's worth", "think about",
			"have you tried", "why not", "how about", "what if you",
			"an option is", "you can", "a tip",
		},
		description: "Actionable recommendations requiring user initiative",
	},
	{
		tier: TierPassive,
		keywords: []string{
			"information", "note that", "keep in mind", "be aware",
			"for your reference", "fyi", "it's common", "research shows",
			"studies suggest", "generally", "typically", "often",
			"some people find", "it's worth noting", "interesting fact",
		},
		description: "Information-only observations with no call to action",
	},
}

func patternForTier(tier string) *tierPattern {
	for i := range classificationPatterns {
		if classificationPatterns[i].tier == tier {
			return &classificationPatterns[i]
		}
	}
	return nil
}

// ClassifyText assigns a consent tier to a suggestion from its text alone.
// Empty or whitespace-only text is Passive (nothing to gate). A text matching
// no table defaults to Suggestive: a moderate-intrusiveness assumption that
// neither under-restricts (Passive) nor over-restricts (Autonomous).
func ClassifyText(suggestionText string) string {
	textLower := strings.ToLower(strings.TrimSpace(suggestionText))
	if textLower == "" {
		return TierPassive
	}
	for _, pattern := range classificationPatterns {
		for _, keyword := range pattern.keywords {
			if strings.Contains(textLower, keyword) {
				return pattern.tier
			}
		}
	}
	return TierSuggestive
}

// matchedKeyword rescans the assigned tier's keyword table and returns the
// first keyword contained in the text, or "" when none matches (hint-assigned
// tiers usually have no matching keyword).
func matchedKeyword(suggestionText, assignedTier string) string {
	pattern := patternForTier(assignedTier)
	if pattern == nil {
		return ""
	}
	textLower := strings.ToLower(strings.TrimSpace(suggestionText))
	for _, keyword := range pattern.keywords {
		if strings.Contains(textLower, keyword) {
			return keyword
		}
	}
	return ""
}
