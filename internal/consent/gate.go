package consent

import (
	"time"

	"github.com/yungbote/othello-backend/internal/logger"
)

// RawSuggestion is an ungated action proposal, usually produced by the AI
// provider. TierHint may be empty, valid, or garbage; the gate normalizes it.
// Extra carries arbitrary caller metadata that must survive gating untouched.
type RawSuggestion struct {
	SuggestionText string         `json:"suggestion_text"`
	TierHint       string         `json:"consent_tier,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
}

// GatedSuggestion is the gate's verdict for one suggestion. Immutable once
// produced. IsPermitted always equals
// TierLevel(AssignedTier) <= TierLevel(UserConsentTier).
type GatedSuggestion struct {
	SuggestionText   string         `json:"suggestion_text"`
	AssignedTier     string         `json:"assigned_tier"`
	EthicalReasoning string         `json:"ethical_reasoning"`
	IsPermitted      bool           `json:"is_permitted"`
	FilterReasoning  string         `json:"filter_reasoning"`
	UserConsentTier  string         `json:"user_consent_tier"`
	Extra            map[string]any `json:"extra,omitempty"`
}

// Audit event types published on the bus.
const (
	AuditEventGateDecision = "gate_decision"
	AuditEventTierCoercion = "tier_coercion"
)

// AuditEvent is the wire record for gating observability: every decision and
// every silent tier coercion is published so upstream data-quality problems
// stay visible.
type AuditEvent struct {
	Type            string    `json:"type"`
	SuggestionText  string    `json:"suggestion_text,omitempty"`
	AssignedTier    string    `json:"assigned_tier,omitempty"`
	UserConsentTier string    `json:"user_consent_tier,omitempty"`
	IsPermitted     bool      `json:"is_permitted,omitempty"`
	CoercedFrom     string    `json:"coerced_from,omitempty"`
	CoercedTo       string    `json:"coerced_to,omitempty"`
	CoercedField    string    `json:"coerced_field,omitempty"`
	At              time.Time `json:"at"`
}

// AuditSink receives audit events. Publishing is fire-and-forget; a slow or
// failing sink must not affect gating.
type AuditSink interface {
	PublishAudit(event AuditEvent)
}

// Engine is the consent gate. Decisions are pure functions of the static
// tables and the inputs; the logger and sink carry observability only.
type Engine struct {
	log  *logger.Logger
	sink AuditSink
}

// NewEngine builds a gate engine. sink may be nil.
func NewEngine(log *logger.Logger, sink AuditSink) *Engine {
	var engineLog *logger.Logger
	if log != nil {
		engineLog = log.With("service", "ConsentEngine")
	}
	return &Engine{log: engineLog, sink: sink}
}

// Classify resolves the consent tier for a suggestion. A valid tier hint wins
// outright; an invalid non-empty hint coerces to Suggestive without scanning
// the text; an absent hint falls through to keyword classification.
func (e *Engine) Classify(suggestionText, tierHint string) string {
	if tierHint != "" {
		if IsValidTier(tierHint) {
			return tierHint
		}
		e.coerce("suggestion_tier", tierHint, TierSuggestive)
		return TierSuggestive
	}
	return ClassifyText(suggestionText)
}

// Explain returns the justification for a tier assignment.
func (e *Engine) Explain(suggestionText, assignedTier string) string {
	return ExplainClassification(suggestionText, assignedTier)
}

// GateOne runs a single suggestion through the consent gate. Invalid tier
// strings are never rejected: an unknown assigned tier coerces to Suggestive
// and an unknown user tier coerces to Passive, with every coercion logged and
// published for audit.
func (e *Engine) GateOne(suggestionText, userConsentTier, tierHint string) GatedSuggestion {
	assignedTier := e.Classify(suggestionText, tierHint)
	if !IsValidTier(assignedTier) {
		e.coerce("assigned_tier", assignedTier, TierSuggestive)
		assignedTier = TierSuggestive
	}
	if !IsValidTier(userConsentTier) {
		e.coerce("user_consent_tier", userConsentTier, TierPassive)
		userConsentTier = TierPassive
	}

	ethicalReasoning := ExplainClassification(suggestionText, assignedTier)
	isPermitted := TierLevel(assignedTier) <= TierLevel(userConsentTier)

	filterReasoning := approvalReasoning(assignedTier, userConsentTier)
	if !isPermitted {
		filterReasoning = blockedReasoning(assignedTier, userConsentTier)
	}

	result := GatedSuggestion{
		SuggestionText:   suggestionText,
		AssignedTier:     assignedTier,
		EthicalReasoning: ethicalReasoning,
		IsPermitted:      isPermitted,
		FilterReasoning:  filterReasoning,
		UserConsentTier:  userConsentTier,
	}

	if e.sink != nil {
		e.sink.PublishAudit(AuditEvent{
			Type:            AuditEventGateDecision,
			SuggestionText:  suggestionText,
			AssignedTier:    assignedTier,
			UserConsentTier: userConsentTier,
			IsPermitted:     isPermitted,
			At:              time.Now().UTC(),
		})
	}
	return result
}

// GateBatch gates a list of raw suggestions, preserving input order. Entries
// with empty suggestion text are dropped; every Extra key on an input entry is
// copied through unchanged onto its output entry.
func (e *Engine) GateBatch(suggestions []RawSuggestion, userConsentTier string) []GatedSuggestion {
	gated := make([]GatedSuggestion, 0, len(suggestions))
	for _, raw := range suggestions {
		if raw.SuggestionText == "" {
			continue
		}
		result := e.GateOne(raw.SuggestionText, userConsentTier, raw.TierHint)
		if len(raw.Extra) > 0 {
			result.Extra = make(map[string]any, len(raw.Extra))
			for key, value := range raw.Extra {
				result.Extra[key] = value
			}
		}
		gated = append(gated, result)
	}
	return gated
}

// FilterPermitted gates a batch and returns only the permitted subset, for the
// primary chat flow where blocked suggestions are withheld from the user. The
// full GateBatch output remains available for audit display.
func (e *Engine) FilterPermitted(suggestions []RawSuggestion, userConsentTier string) []GatedSuggestion {
	allGated := e.GateBatch(suggestions, userConsentTier)
	permitted := make([]GatedSuggestion, 0, len(allGated))
	for _, gatedSuggestion := range allGated {
		if gatedSuggestion.IsPermitted {
			permitted = append(permitted, gatedSuggestion)
		}
	}
	return permitted
}

func (e *Engine) coerce(field, from, to string) {
	if e.log != nil {
		e.log.Warn("Coerced invalid consent tier", "field", field, "from", from, "to", to)
	}
	if e.sink != nil {
		e.sink.PublishAudit(AuditEvent{
			Type:         AuditEventTierCoercion,
			CoercedField: field,
			CoercedFrom:  from,
			CoercedTo:    to,
			At:           time.Now().UTC(),
		})
	}
}
