// Package roles assigns exactly one content role to a block of text using
// an ordered keyword rule table. Evaluation is first-match-wins in a fixed
// priority order, so a block matching several roles always resolves the
// same way. The classifier is a pure function of the block text.
package roles

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Role labels form a closed vocabulary. Precedence is the order of the rule
// table below, not the order of these constants.
const (
	RoleTransactional = "TRANSACTIONAL"
	RoleTemporal      = "TEMPORAL"
	RoleProcedural    = "PROCEDURAL"
	RolePromotional   = "PROMOTIONAL"
	RolePolicyLegal   = "POLICY_LEGAL"
	RoleContact       = "CONTACT"
	RoleDescriptive   = "DESCRIPTIVE"
	RoleGeneral       = "GENERAL"
)

// All lists every role label, precedence order first, GENERAL last.
var All = []string{
	RoleTransactional,
	RoleTemporal,
	RoleProcedural,
	RolePromotional,
	RolePolicyLegal,
	RoleContact,
	RoleDescriptive,
	RoleGeneral,
}

// Match is the outcome of classifying one block.
type Match struct {
	Role       string
	RuleID     string
	Confidence float64
}

// generalConfidence applies when no rule matched.
const generalConfidence = 0.3

// ruleTable holds the keyword vocabulary per role. Order matters twice over:
// roles are tried top to bottom, and within a role the first matching
// keyword names the rule. Reordering entries changes classification for
// blocks matching multiple rules.
var ruleTable = []struct {
	role     string
	keywords []string
}{
	{RoleTransactional, []string{"price", "$", "£", "€", "booking", "book now", "buy", "purchase", "order", "payment", "cost", "fee"}},
	{RoleTemporal, []string{"schedule", "appointment", "date", "time", "opening hours", "deadline", "hours", "open", "closed", "monday", "tuesday", "wednesday", "thursday", "friday", "available"}},
	{RoleProcedural, []string{"how to", "step", "instruction", "procedure", "guide", "tutorial", "process", "method", "apply", "prepare"}},
	{RolePromotional, []string{"offer", "discount", "sale", "promotion", "deal", "special", "limited", "testimonial", "review", "rated"}},
	{RolePolicyLegal, []string{"terms", "privacy", "policy", "regulation", "legal", "conditions", "agreement", "copyright", "disclaimer"}},
	{RoleContact, []string{"email", "phone", "contact", "support", "address", "location", "call", "reach us", "get in touch"}},
	{RoleDescriptive, []string{"what is", "treatment", "procedure", "benefit", "result", "effect", "improve", "enhance", "rejuvenate", "reduce"}},
}

// Contact detail patterns back up the CONTACT keyword list: a page footer
// with a bare email address or phone number carries no contact vocabulary
// but is still contact content.
var (
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`(?:\+|\b0)\d[\d\s().-]{7,}\d\b`)
)

var symbolSlugs = map[string]string{
	"$": "dollar",
	"£": "pound",
	"€": "euro",
}

// Classify returns the single role for text. The rule table is evaluated in
// priority order and the first keyword hit wins; blocks matching nothing
// default to GENERAL with a low fixed confidence.
func Classify(text string) Match {
	lower := strings.ToLower(text)
	for _, rule := range ruleTable {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return Match{
					Role:       rule.role,
					RuleID:     ruleID(rule.role, keyword),
					Confidence: keywordConfidence(keyword),
				}
			}
		}
		if rule.role == RoleContact {
			if loc := emailRE.FindString(text); loc != "" {
				return Match{Role: RoleContact, RuleID: "contact/email_pattern", Confidence: keywordConfidence(loc)}
			}
			if loc := phoneRE.FindString(text); loc != "" {
				return Match{Role: RoleContact, RuleID: "contact/phone_pattern", Confidence: keywordConfidence(loc)}
			}
		}
	}
	return Match{Role: RoleGeneral, Confidence: generalConfidence}
}

// keywordConfidence scales with trigger length: longer triggers are less
// likely to be incidental substrings. Capped well below certainty since the
// rules are heuristic.
func keywordConfidence(keyword string) float64 {
	confidence := 0.6 + float64(utf8.RuneCountInString(keyword))*0.02
	if confidence > 0.9 {
		confidence = 0.9
	}
	return math.Round(confidence*100) / 100
}

func ruleID(role, keyword string) string {
	slug, ok := symbolSlugs[keyword]
	if !ok {
		slug = strings.ReplaceAll(keyword, " ", "_")
	}
	return strings.ToLower(role) + "/" + slug
}
