package scoring

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveWeights_Defaults(t *testing.T) {
	w, err := ResolveWeights(nil)

	require.NoError(t, err)
	assert.Equal(t, DefaultWeights(), w)
}

func TestResolveWeights_PartialOverride(t *testing.T) {
	// Only the composite tier is overridden; sub-tier weights keep their
	// defaults.
	overrides := json.RawMessage(`{"composite":{"engagement":1.0,"efficiency":0,"volume":0,"frequency":0}}`)

	w, err := ResolveWeights(overrides)
	require.NoError(t, err)

	assert.Equal(t, 1.0, w.Composite.Engagement)
	assert.Equal(t, 0.0, w.Composite.Efficiency)
	assert.Equal(t, DefaultWeights().Engagement, w.Engagement)
	assert.Equal(t, DefaultWeights().Volume, w.Volume)
}

func TestResolveWeights_InvalidJSON(t *testing.T) {
	_, err := ResolveWeights(json.RawMessage(`{not json`))
	assert.Error(t, err)
}

func TestResolveWeights_NegativeWeightRejected(t *testing.T) {
	_, err := ResolveWeights(json.RawMessage(`{"volume":{"clicks":-1}}`))
	assert.Error(t, err)
}

func TestCalculateBackoff(t *testing.T) {
	p := &Pipeline{retryBaseWait: 100 * time.Millisecond}

	// Exponential growth with up to 10% jitter on top.
	b0 := p.calculateBackoff(0)
	assert.GreaterOrEqual(t, b0, 100*time.Millisecond)
	assert.LessOrEqual(t, b0, 110*time.Millisecond)

	b2 := p.calculateBackoff(2)
	assert.GreaterOrEqual(t, b2, 400*time.Millisecond)
	assert.LessOrEqual(t, b2, 440*time.Millisecond)

	// Capped at five minutes regardless of attempt count.
	b20 := p.calculateBackoff(20)
	assert.Equal(t, 5*time.Minute, b20)
}
