package calcerr

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsKind(t *testing.T) {
	err := New(NegativeEnergy, "ToCO2eKg").WithValue(-1)

	assert.True(t, errors.Is(err, NegativeEnergy))
	assert.False(t, errors.Is(err, NegativeFactor))

	wrapped := fmt.Errorf("batch item 3: %w", err)
	assert.True(t, errors.Is(wrapped, NegativeEnergy))
	assert.Equal(t, NegativeEnergy, KindOf(wrapped))
}

func TestError_MessageCarriesContext(t *testing.T) {
	err := &Error{
		Kind:   NoFactorForDate,
		Op:     "Resolve",
		Region: "IN",
		Scope:  "baseline",
		Date:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, "Resolve: no factor for date (region=IN, scope=baseline, date=2020-01-01)", err.Error())
}

func TestError_InvalidUnitAlwaysShowsToken(t *testing.T) {
	err := New(InvalidUnit, "NormalizeEnergy")
	assert.Equal(t, `NormalizeEnergy: invalid unit (unit="")`, err.Error())

	err.Unit = "BTU"
	assert.Equal(t, `NormalizeEnergy: invalid unit (unit="BTU")`, err.Error())
}

func TestError_WrapsCause(t *testing.T) {
	cause := errors.New("yaml: line 3: did not find expected key")
	err := &Error{Kind: InvalidPack, Op: "DecodeYAML", Err: cause}

	require.ErrorIs(t, err, InvalidPack)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "did not find expected key")
}

func TestKindOf_PlainErrors(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, UnknownRegion, KindOf(UnknownRegion))
	assert.Equal(t, Kind(""), KindOf(nil))
}
