package analysis

import (
	"testing"
)

func TestDetect_ChurnPromptFrench(t *testing.T) {
	d := NewDetector(DefaultContexts())

	prompt := "quel est le taux de churn de septembre"
	sqlText := "SELECT COUNT(*) FROM analytics.subs.cancellations WHERE cancel_date BETWEEN '2025-09-01' AND '2025-09-30'"

	detected := d.Detect(prompt, sqlText)
	if detected == nil {
		t.Fatal("expected a detected context, got nil")
	}
	if detected.Type != ContextChurn {
		t.Errorf("expected churn context, got %s", detected.Type)
	}
	if detected.Score < 3 {
		t.Errorf("expected score >= 3 from prompt keyword, got %d", detected.Score)
	}
	if len(detected.Dimensions) == 0 {
		t.Error("expected candidate dimensions to be copied from the definition")
	}
}

func TestDetect_NoMatchReturnsNil(t *testing.T) {
	d := NewDetector(DefaultContexts())

	if got := d.Detect("what is the weather like", "SELECT 1"); got != nil {
		t.Errorf("expected nil for unrecognized question, got %+v", got)
	}
}

func TestDetect_Deterministic(t *testing.T) {
	d := NewDetector(DefaultContexts())

	prompt := "how much revenue did subscriptions bring in"
	sqlText := "SELECT SUM(amount) FROM analytics.billing.payments"

	first := d.Detect(prompt, sqlText)
	if first == nil {
		t.Fatal("expected a detected context")
	}
	for i := 0; i < 10; i++ {
		again := d.Detect(prompt, sqlText)
		if again == nil || again.Type != first.Type || again.Score != first.Score {
			t.Fatalf("detection not deterministic: first %+v, run %d got %+v", first, i, again)
		}
	}
}

func TestDetect_TieBreakFirstDeclared(t *testing.T) {
	contexts := []ContextDefinition{
		{Type: ContextOrders, Keywords: []string{"volume"}, Dimensions: []Dimension{{Name: "status", Label: "Status"}}},
		{Type: ContextBoxes, Keywords: []string{"volume"}, Dimensions: []Dimension{{Name: "box_type", Label: "Box type"}}},
	}
	d := NewDetector(contexts)

	detected := d.Detect("what was the volume", "SELECT COUNT(*) FROM t")
	if detected == nil {
		t.Fatal("expected a detected context")
	}
	if detected.Type != ContextOrders {
		t.Errorf("tie should resolve to the first declared context, got %s", detected.Type)
	}
}

func TestDetect_PromptOutweighsSQL(t *testing.T) {
	contexts := []ContextDefinition{
		{Type: ContextOrders, Keywords: []string{"order"}},
		{Type: ContextUsers, Keywords: []string{"customer"}},
	}
	d := NewDetector(contexts)

	// "order" appears only in the SQL (+1); "customer" in the prompt (+3).
	detected := d.Detect("how many customers", "SELECT COUNT(*) FROM shop.orders.order_lines")
	if detected == nil {
		t.Fatal("expected a detected context")
	}
	if detected.Type != ContextUsers {
		t.Errorf("prompt keyword should outweigh SQL keyword, got %s", detected.Type)
	}
}
