package carbon

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rshade/co2e-engine/internal/calcerr"
)

// TestSelectMethodology_Priority tests the priority order: item > fallback > default.
func TestSelectMethodology_Priority(t *testing.T) {
	tests := []struct {
		name     string
		fallback *Methodology
		item     *Methodology
		want     Methodology
	}{
		{
			name: "default when both nil",
			want: DefaultMethodology(),
		},
		{
			name:     "fallback used when item nil",
			fallback: &Methodology{Efficiency: 0.8},
			want:     Methodology{Efficiency: 0.8},
		},
		{
			name:     "item takes priority over fallback",
			fallback: &Methodology{Efficiency: 0.8},
			item:     &Methodology{Efficiency: 0.6, Degradation: 0.05},
			want:     Methodology{Efficiency: 0.6, Degradation: 0.05},
		},
		{
			name: "unset efficiency filled with default",
			item: &Methodology{Degradation: 0.2},
			want: Methodology{Efficiency: DefaultEfficiency, Degradation: 0.2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectMethodology(tt.fallback, tt.item))
		})
	}
}

func TestMethodology_Validate(t *testing.T) {
	tests := []struct {
		name     string
		m        Methodology
		wantKind calcerr.Kind
	}{
		{"identity", DefaultMethodology(), ""},
		{"efficiency at bound", Methodology{Efficiency: 1, Degradation: 0.99}, ""},
		{"zero efficiency", Methodology{Efficiency: 0}, calcerr.InvalidInput},
		{"negative efficiency", Methodology{Efficiency: -0.5}, calcerr.InvalidInput},
		{"efficiency above one", Methodology{Efficiency: 1.01}, calcerr.InvalidInput},
		{"negative degradation", Methodology{Efficiency: 1, Degradation: -0.1}, calcerr.InvalidInput},
		{"degradation of one", Methodology{Efficiency: 1, Degradation: 1}, calcerr.InvalidInput},
		{"NaN efficiency", Methodology{Efficiency: math.NaN()}, calcerr.NonFiniteInput},
		{"infinite degradation", Methodology{Efficiency: 1, Degradation: math.Inf(1)}, calcerr.NonFiniteInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if tt.wantKind == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantKind)
		})
	}
}

func TestMethodology_Apply(t *testing.T) {
	assert.Equal(t, 1234.5, DefaultMethodology().Apply(1234.5))
	assert.InDelta(t, 810.0, Methodology{Efficiency: 0.9, Degradation: 0.1}.Apply(1000), 1e-9)
	assert.Equal(t, 0.0, Methodology{Efficiency: 0.5, Degradation: 0.5}.Apply(0))
}
