package fusion

import (
	"math"
	"time"

	"github.com/conhub/rde/internal/model"
)

// DefaultRecencyTauDays is τ, the decay half-life used by RecencyBiased.
const DefaultRecencyTauDays = 30

// RecencyBiased rescales each candidate's score by
// score * (0.5 + 0.5*exp(-age_days/tau)). Missing timestamps are treated
// as age = tau.
func RecencyBiased(candidates []model.Candidate, tauDays float64, now time.Time) []model.Candidate {
	if tauDays <= 0 {
		tauDays = DefaultRecencyTauDays
	}
	out := make([]model.Candidate, len(candidates))
	for i, c := range candidates {
		ageDays := tauDays
		if c.Timestamp != nil {
			ageDays = now.Sub(*c.Timestamp).Hours() / 24
			if ageDays < 0 {
				ageDays = 0
			}
		}
		c.Score = c.Score * (0.5 + 0.5*math.Exp(-ageDays/tauDays))
		out[i] = c
	}
	return out
}
