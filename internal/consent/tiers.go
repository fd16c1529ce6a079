package consent

// Consent tiers in ascending intrusiveness. Comparisons always go through the
// integer level, never the string.
const (
	TierPassive    = "Passive"
	TierSuggestive = "Suggestive"
	TierActive     = "Active"
	TierAutonomous = "Autonomous"
)

var tierHierarchy = map[string]int{
	TierPassive:    1,
	TierSuggestive: 2,
	TierActive:     3,
	TierAutonomous: 4,
}

// OrderedTiers lists the valid tiers from least to most intrusive.
var OrderedTiers = []string{TierPassive, TierSuggestive, TierActive, TierAutonomous}

// TierDescriptions is user-facing copy for each consent tier.
var TierDescriptions = map[string]string{
	TierPassive:    "AI observes and learns but does not make suggestions. Information is gathered silently.",
	TierSuggestive: "AI may offer gentle suggestions when relevant, but takes no action without explicit approval.",
	TierActive:     "AI proactively suggests actions and may prepare drafts or plans for your review before execution.",
	TierAutonomous: "AI may take pre-approved categories of actions on your behalf, reporting results afterward.",
}

// TierLevel returns the numeric level for a tier name, or 0 for unknown names.
// Callers comparing levels must normalize unknown tiers first; a raw unknown
// tier degenerates to level 0 and the wrong outcome.
func TierLevel(tier string) int {
	return tierHierarchy[tier]
}

// IsValidTier reports whether name is one of the four known consent tiers.
func IsValidTier(name string) bool {
	_, ok := tierHierarchy[name]
	return ok
}
