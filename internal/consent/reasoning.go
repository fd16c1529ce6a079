package consent

import (
	"fmt"
	"strings"
)

var reasoningTemplates = map[string]string{
	TierPassive: "This suggestion provides informational context only and does not prompt " +
		"any specific action. It respects user autonomy by presenting knowledge " +
		"without directing behavior. Classified as Passive tier — minimal intrusiveness.",
	TierSuggestive: "This suggestion recommends a specific action but leaves execution entirely " +
		"to the user. It respects user agency by offering guidance without assuming " +
		"permission to act. Classified as Suggestive tier — moderate intrusiveness, " +
		"requires user initiative.",
	TierActive: "This suggestion offers for the system to perform an action on the user's " +
		"behalf. It requires explicit user consent before execution as it involves " +
		"the system taking a direct role. Classified as Active tier — elevated " +
		"intrusiveness, requires explicit approval.",
	TierAutonomous: "This suggestion describes an action the system would take or has taken " +
		"independently. This represents the highest level of intrusiveness and " +
		"requires the user to have granted Autonomous consent tier. Classified as " +
		"Autonomous tier — maximum intrusiveness, requires pre-authorized consent.",
}

const blockedReasoningTemplate = "Suggestion blocked: requires '%s' consent tier (level %d), but user's " +
	"current consent tier is '%s' (level %d). The suggestion's intrusiveness " +
	"exceeds the user's authorized consent boundary. To receive this type of " +
	"suggestion, the user may adjust their consent tier to '%s' or higher."

const approvedReasoningTemplate = "Suggestion approved: classified as '%s' tier (level %d), which is " +
	"within the user's current consent tier '%s' (level %d). Ethical gate " +
	"passed — suggestion intrusiveness is within authorized boundaries."

// ExplainClassification produces the human-auditable justification for a tier
// assignment: the per-tier base template, plus either the specific keyword that
// triggered the classification or a default-heuristic note when none did.
func ExplainClassification(suggestionText, assignedTier string) string {
	baseReasoning, ok := reasoningTemplates[assignedTier]
	if !ok {
		baseReasoning = reasoningTemplates[TierSuggestive]
	}

	if keyword := matchedKeyword(suggestionText, assignedTier); keyword != "" {
		pattern := patternForTier(assignedTier)
		return fmt.Sprintf("%s Classification trigger: detected '%s' pattern indicating %s.",
			baseReasoning, keyword, strings.ToLower(pattern.description))
	}
	return baseReasoning + " Classification based on default heuristic — no strong tier-specific indicators detected."
}

func approvalReasoning(assignedTier, userTier string) string {
	return fmt.Sprintf(approvedReasoningTemplate,
		assignedTier, TierLevel(assignedTier), userTier, TierLevel(userTier))
}

func blockedReasoning(assignedTier, userTier string) string {
	return fmt.Sprintf(blockedReasoningTemplate,
		assignedTier, TierLevel(assignedTier), userTier, TierLevel(userTier), assignedTier)
}
