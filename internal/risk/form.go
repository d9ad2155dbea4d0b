package risk

import "sync"

// Form holds the two scoring inputs of a risk being edited and keeps the
// score in step with them: every setter recomputes before returning, and
// clearing an input withdraws the score.
type Form struct {
	mu          sync.RWMutex
	probability Level
	impact      Level
	score       Score
	scored      bool
}

func NewForm(probability, impact Level) *Form {
	f := &Form{}
	f.set(probability, impact)
	return f
}

func (f *Form) SetProbability(l Level) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set(l, f.impact)
}

func (f *Form) SetImpact(l Level) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set(f.probability, l)
}

// Inputs returns the current probability and impact.
func (f *Form) Inputs() (probability, impact Level) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.probability, f.impact
}

// Score returns the current score, with ok false while inputs are incomplete.
func (f *Form) Score() (Score, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.score, f.scored
}

func (f *Form) set(probability, impact Level) {
	if !probability.Valid() {
		probability = LevelUnset
	}
	if !impact.Valid() {
		impact = LevelUnset
	}
	f.probability, f.impact = probability, impact
	f.score, f.scored = Compute(probability, impact)
}
