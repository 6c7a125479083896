// Package analysis implements the proactive multi-dimensional analysis
// and automatic period-comparison engine. Given the user's question, the
// SQL that answered it and the primary result, it decides whether the
// result is worth enriching, breaks aggregates down by likely dimensions
// and compares the period against prior comparable periods. Everything
// here is best effort: failures degrade to "no enrichment", never into
// the primary answer.
package analysis

import "strings"

// ContextType tags a business context.
type ContextType string

const (
	ContextChurn         ContextType = "churn"
	ContextRevenue       ContextType = "revenue"
	ContextOrders        ContextType = "orders"
	ContextSubscriptions ContextType = "subscriptions"
	ContextBoxes         ContextType = "boxes"
	ContextUsers         ContextType = "users"
)

// Dimension is a semantic dimension candidate with its display label.
type Dimension struct {
	Name  string
	Label string
}

// ContextDefinition associates a business context with its trigger
// keywords and the dimensions worth drilling into, in priority order.
// Definitions are immutable and defined once at startup.
type ContextDefinition struct {
	Type       ContextType
	Keywords   []string
	Dimensions []Dimension
}

// DefaultContexts returns the fixed context table. Order matters: when
// two contexts score equally, the earliest one in this slice wins.
// Keyword sets are hand curated for the bilingual (EN/FR) prompts our
// analysts actually write; unrecognized questions simply skip proactive
// analysis.
func DefaultContexts() []ContextDefinition {
	return []ContextDefinition{
		{
			Type:     ContextChurn,
			Keywords: []string{"churn", "attrition", "resili", "résili", "cancel", "desabonne", "désabonne"},
			Dimensions: []Dimension{
				{Name: "country", Label: "Country"},
				{Name: "plan", Label: "Plan"},
				{Name: "cancellation_reason", Label: "Cancellation reason"},
				{Name: "channel", Label: "Acquisition channel"},
			},
		},
		{
			Type:     ContextRevenue,
			Keywords: []string{"revenue", "revenu", "chiffre d'affaires", "turnover", "gmv", "sales", "ventes"},
			Dimensions: []Dimension{
				{Name: "country", Label: "Country"},
				{Name: "product", Label: "Product"},
				{Name: "plan", Label: "Plan"},
				{Name: "channel", Label: "Channel"},
			},
		},
		{
			Type:     ContextOrders,
			Keywords: []string{"order", "commande", "checkout", "panier"},
			Dimensions: []Dimension{
				{Name: "country", Label: "Country"},
				{Name: "status", Label: "Status"},
				{Name: "product", Label: "Product"},
				{Name: "channel", Label: "Channel"},
			},
		},
		{
			Type:     ContextSubscriptions,
			Keywords: []string{"subscription", "abonnement", "souscription", "renewal", "renouvellement"},
			Dimensions: []Dimension{
				{Name: "country", Label: "Country"},
				{Name: "plan", Label: "Plan"},
				{Name: "status", Label: "Status"},
			},
		},
		{
			Type:     ContextBoxes,
			Keywords: []string{"box", "boxes", "coffret", "colis", "shipment", "livraison"},
			Dimensions: []Dimension{
				{Name: "country", Label: "Country"},
				{Name: "box_type", Label: "Box type"},
				{Name: "status", Label: "Status"},
			},
		},
		{
			Type:     ContextUsers,
			Keywords: []string{"user", "utilisateur", "customer", "client", "signup", "inscription"},
			Dimensions: []Dimension{
				{Name: "country", Label: "Country"},
				{Name: "channel", Label: "Channel"},
				{Name: "platform", Label: "Platform"},
			},
		},
	}
}

// DetectedContext is the winning context for one query-result event.
type DetectedContext struct {
	Type       ContextType
	Dimensions []Dimension
	Score      int
}

// Detector scores prompts and SQL against the context table.
type Detector struct {
	contexts []ContextDefinition
}

// NewDetector creates a detector over an immutable context table.
func NewDetector(contexts []ContextDefinition) *Detector {
	return &Detector{contexts: contexts}
}

// Detect scores every context against the user prompt and the executed
// SQL: +3 per keyword found in the prompt, +1 per keyword found in the
// SQL. The highest-scoring context wins; ties resolve to the context
// declared first. Returns nil when nothing scores above zero.
func (d *Detector) Detect(prompt, sqlText string) *DetectedContext {
	promptLower := strings.ToLower(prompt)
	sqlLower := strings.ToLower(sqlText)

	var best *DetectedContext
	for i := range d.contexts {
		def := &d.contexts[i]
		score := 0
		for _, kw := range def.Keywords {
			if strings.Contains(promptLower, kw) {
				score += 3
			}
			if strings.Contains(sqlLower, kw) {
				score += 1
			}
		}
		if score <= 0 {
			continue
		}
		if best == nil || score > best.Score {
			dims := make([]Dimension, len(def.Dimensions))
			copy(dims, def.Dimensions)
			best = &DetectedContext{
				Type:       def.Type,
				Dimensions: dims,
				Score:      score,
			}
		}
	}

	return best
}
