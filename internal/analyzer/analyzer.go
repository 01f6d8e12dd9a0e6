// Package analyzer implements deterministic classification of a question
// into a QueryKind and ModalityHint, plus best-effort entity extraction.
// No external model calls.
package analyzer

import (
	"regexp"
	"strings"
	"time"

	"github.com/conhub/rde/internal/model"
)

// Result is the analyzer's output for one query.
type Result struct {
	Kind       model.QueryKind
	Modality   model.ModalityHint
	Entities   []string
	TimeHint   *model.TimeWindow
	Confidence float64
}

// Analyzer classifies raw query text. It never fails; Unknown+Mixed is a
// valid result.
type Analyzer interface {
	Analyze(text string, sources []model.ModalityHint) Result
}

type analyzer struct{}

// New returns the default deterministic Analyzer.
func New() Analyzer {
	return &analyzer{}
}

type rule struct {
	kind    model.QueryKind
	matches func(lower string) bool
}

var topologyPhrases = []string{"who owns", "who authored", "who depends", "what depends on", "who worked on"}

var topologyWhichUseRe = regexp.MustCompile(`\bwhich\b.*\buses?\b`)

var timePhraseRe = regexp.MustCompile(`yesterday|last week|last month|today|on 20\d\d-\d\d-\d\d|between .+ and .+`)

var (
	howToRe       = regexp.MustCompile(`^how to\b|^how do i\b`)
	explainerRe   = regexp.MustCompile(`^how does\b|\bexplain\b|\bwalk me through\b`)
	troubleRe     = regexp.MustCompile(`why .* fail|\berror\b|\bcrash\b|\bregression\b|\bbug\b`)
	comparisonRe  = regexp.MustCompile(`difference between .+ and .+|\bcompare\b`)
	aggregationRe = regexp.MustCompile(`^how many\b|^count\b|^list all\b`)
	taskSupportRe = regexp.MustCompile(`what should i do|\bnext step\b`)
	factLookupRe  = regexp.MustCompile(`^what is\b|^define\b`)
)

// rules are all evaluated against the text; when more than one matches,
// the later rule in this list wins. That lets a sharper, more specific
// rule (e.g. Troubleshooting) override a broader one matched earlier
// (e.g. Episodic on a bare time phrase) without the list needing to be
// reordered every time a new overlap turns up. The last rule, FactLookup,
// is a fallback: it applies only when no earlier rule matched, since its
// short-phrase heuristic would otherwise override every short query.
var rules = []rule{
	{model.KindTopologyQuestion, func(lower string) bool {
		return matchesAny(topologyPhrases)(lower) || topologyWhichUseRe.MatchString(lower)
	}},
	{model.KindEpisodicLookup, func(lower string) bool {
		return timePhraseRe.MatchString(lower) && hasSubject(lower)
	}},
	{model.KindHowTo, howToRe.MatchString},
	{model.KindExplainer, explainerRe.MatchString},
	{model.KindTroubleshooting, troubleRe.MatchString},
	{model.KindComparison, comparisonRe.MatchString},
	{model.KindAggregation, aggregationRe.MatchString},
	{model.KindTaskSupport, taskSupportRe.MatchString},
	{model.KindFactLookup, isShortNounPhrase},
}

func matchesAny(phrases []string) func(string) bool {
	return func(lower string) bool {
		for _, p := range phrases {
			if strings.Contains(lower, p) {
				return true
			}
		}
		return false
	}
}

// hasSubject is a cheap heuristic: a time phrase alone ("yesterday") isn't
// enough to call a query episodic — the query needs at least three words
// to plausibly refer to a subject as well.
func hasSubject(lower string) bool {
	words := strings.Fields(lower)
	return len(words) >= 3
}

func isShortNounPhrase(lower string) bool {
	if factLookupRe.MatchString(lower) {
		return true
	}
	words := strings.Fields(strings.TrimRight(lower, "?"))
	return len(words) > 0 && len(words) <= 6
}

func (a *analyzer) Analyze(text string, sources []model.ModalityHint) Result {
	lower := strings.ToLower(strings.TrimSpace(text))

	kind := model.KindUnknown
	for _, r := range rules {
		if r.kind == model.KindFactLookup && kind != model.KindUnknown {
			continue
		}
		if r.matches(lower) {
			kind = r.kind
		}
	}

	modality := deriveModality(text, lower, sources)
	entities := extractEntities(text)
	timeHint := extractTimeHint(lower, kind)

	confidence := 0.9
	if kind == model.KindUnknown {
		confidence = 0.3
	}

	return Result{
		Kind:       kind,
		Modality:   modality,
		Entities:   entities,
		TimeHint:   timeHint,
		Confidence: confidence,
	}
}

func deriveModality(text, lower string, sources []model.ModalityHint) model.ModalityHint {
	if len(sources) == 1 {
		return sources[0]
	}
	switch {
	case codeIdentifierRe.MatchString(text) || codeIdentifierRe.MatchString(lower):
		return model.ModalityCode
	case strings.Contains(lower, "doc") || strings.Contains(lower, "readme") || strings.Contains(lower, "spec"):
		return model.ModalityDocs
	case strings.Contains(lower, "slack") || strings.Contains(lower, "thread") || strings.Contains(lower, "message"):
		return model.ModalityChat
	case strings.Contains(lower, "ticket") || strings.Contains(lower, "issue") || strings.Contains(lower, "pr ") || strings.Contains(lower, "jira"):
		return model.ModalityTickets
	case strings.Contains(lower, "robot") || strings.Contains(lower, "episode") || strings.Contains(lower, "sensor"):
		return model.ModalityRobotEpisodic
	default:
		return model.ModalityMixed
	}
}

var (
	codeIdentifierRe = regexp.MustCompile(`[a-z]+[A-Z][a-zA-Z]*|[a-z]+_[a-z_]+|\.(go|py|rs|js|ts|java|rb)\b`)
	repoRe           = regexp.MustCompile(`\b[\w.-]+/[\w.-]+\b`)
	ticketRe         = regexp.MustCompile(`\b[A-Z]{2,}-\d+\b`)
	pathRe           = regexp.MustCompile(`\b[\w./-]+\.(go|py|rs|js|ts|java|rb|md|yaml|yml|json)\b`)
)

// extractEntities is best-effort regex extraction; failures are never
// fatal, callers always get a (possibly empty) slice.
func extractEntities(text string) []string {
	var entities []string
	seen := map[string]bool{}
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			entities = append(entities, s)
		}
	}
	for _, m := range ticketRe.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range pathRe.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range repoRe.FindAllString(text, -1) {
		add(m)
	}
	return entities
}

// extractTimeHint parses the crude patterns from the time-phrase regex
// into a concrete window. Only meaningful for EpisodicLookup; returns nil
// otherwise.
func extractTimeHint(lower string, kind model.QueryKind) *model.TimeWindow {
	if kind != model.KindEpisodicLookup {
		return nil
	}
	now := time.Now().UTC()
	switch {
	case strings.Contains(lower, "yesterday"):
		start := now.AddDate(0, 0, -1).Truncate(24 * time.Hour)
		return &model.TimeWindow{Start: start, End: start.Add(24 * time.Hour)}
	case strings.Contains(lower, "last week"):
		return &model.TimeWindow{Start: now.AddDate(0, 0, -7), End: now}
	case strings.Contains(lower, "last month"):
		return &model.TimeWindow{Start: now.AddDate(0, -1, 0), End: now}
	case strings.Contains(lower, "today"):
		start := now.Truncate(24 * time.Hour)
		return &model.TimeWindow{Start: start, End: start.Add(24 * time.Hour)}
	default:
		return nil
	}
}
