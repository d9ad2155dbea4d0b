package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForm_RecomputesOnEveryChange(t *testing.T) {
	f := NewForm(LevelUnset, LevelUnset)
	_, ok := f.Score()
	assert.False(t, ok)

	f.SetProbability(Alto)
	_, ok = f.Score()
	assert.False(t, ok, "impact still unset")

	f.SetImpact(Alto)
	score, ok := f.Score()
	require.True(t, ok)
	assert.Equal(t, Score{Criticality: 16, Severity: SeverityExtremo}, score)

	f.SetImpact(MuitoBaixo)
	score, ok = f.Score()
	require.True(t, ok)
	assert.Equal(t, Score{Criticality: 4, Severity: SeverityMedio}, score)
}

func TestForm_ClearingAnInputWithdrawsTheScore(t *testing.T) {
	f := NewForm(Medio, Medio)
	_, ok := f.Score()
	require.True(t, ok)

	f.SetProbability(LevelUnset)
	score, ok := f.Score()
	assert.False(t, ok)
	assert.Equal(t, Score{}, score, "no stale score survives")

	f.SetImpact(Level(42))
	p, i := f.Inputs()
	assert.Equal(t, LevelUnset, p)
	assert.Equal(t, LevelUnset, i)
}
