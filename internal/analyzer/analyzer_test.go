package analyzer

import (
	"testing"

	"github.com/conhub/rde/internal/model"
)

func TestAnalyze_Kind(t *testing.T) {
	tests := []struct {
		name string
		text string
		want model.QueryKind
	}{
		{"topology owns", "Who owns the payment service?", model.KindTopologyQuestion},
		{"topology depends", "What depends on the auth package?", model.KindTopologyQuestion},
		{"topology which uses", "Which services use the billing API?", model.KindTopologyQuestion},
		{"how to", "How to deploy the worker?", model.KindHowTo},
		{"explainer how does", "How does the authentication flow work?", model.KindExplainer},
		{"explainer explain", "Explain the retry policy", model.KindExplainer},
		{"troubleshooting beats episodic on time phrase", "Why did the deploy fail yesterday?", model.KindTroubleshooting},
		{"troubleshooting no time", "Why does the build fail with this error", model.KindTroubleshooting},
		{"comparison", "What is the difference between REST and gRPC?", model.KindComparison},
		{"aggregation", "How many repos do we have?", model.KindAggregation},
		{"task support", "What should I do next for this incident?", model.KindTaskSupport},
		{"fact lookup", "What is JWT?", model.KindFactLookup},
		{"unknown", "blah blah blah nothing matches here at all really", model.KindUnknown},
	}

	a := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Analyze(tt.text, nil).Kind
			if got != tt.want {
				t.Errorf("Analyze(%q).Kind = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestAnalyze_ModalityFromSources(t *testing.T) {
	a := New()
	r := a.Analyze("what is this", []model.ModalityHint{model.ModalityTickets})
	if r.Modality != model.ModalityTickets {
		t.Errorf("Modality = %v, want %v", r.Modality, model.ModalityTickets)
	}
}

func TestAnalyze_ModalityFromKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want model.ModalityHint
	}{
		{"code identifier", "explain getUserById function", model.ModalityCode},
		{"docs", "explain the README", model.ModalityDocs},
		{"chat", "what was said in that slack thread", model.ModalityChat},
		{"tickets", "what is the status of ticket PROJ-123", model.ModalityTickets},
		{"default mixed", "explain the onboarding process", model.ModalityMixed},
	}
	a := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Analyze(tt.text, nil).Modality
			if got != tt.want {
				t.Errorf("Modality(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestAnalyze_EntityExtraction(t *testing.T) {
	a := New()
	r := a.Analyze("who authored login.rs in conhub/rde for PROJ-123", nil)
	want := map[string]bool{"PROJ-123": true, "login.rs": true, "conhub/rde": true}
	if len(r.Entities) == 0 {
		t.Fatalf("expected entities, got none")
	}
	for _, e := range r.Entities {
		if !want[e] {
			t.Errorf("unexpected entity %q", e)
		}
	}
}

func TestAnalyze_NeverFails(t *testing.T) {
	a := New()
	r := a.Analyze("", nil)
	if r.Kind != model.KindUnknown || r.Modality != model.ModalityMixed {
		t.Errorf("empty text should yield Unknown+Mixed, got %v/%v", r.Kind, r.Modality)
	}
}
