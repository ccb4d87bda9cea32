package carbon

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/co2e-engine/internal/calcerr"
	"github.com/rshade/co2e-engine/internal/detmath"
	"github.com/rshade/co2e-engine/internal/factors"
)

// FactorResolver selects the emission factor for a query.
// *factors.Registry implements it.
type FactorResolver interface {
	Resolve(q factors.Query) (factors.EmissionFactor, error)
}

// CarbonEstimator converts requests into results.
type CarbonEstimator interface {
	// Convert applies the request's factor, or the resolved one, to its energy.
	Convert(req ConversionRequest) (ConversionResult, error)

	// Avoided is Convert for an energy intervention, with the methodology applied.
	Avoided(req ConversionRequest) (ConversionResult, error)
}

// Estimator implements CarbonEstimator on top of a FactorResolver.
type Estimator struct {
	resolver    FactorResolver
	rounding    detmath.RoundingSpec
	methodology *Methodology
	logger      zerolog.Logger // logger is immutable (copy-on-write)
	now         func() time.Time
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithRounding sets the rounding applied to results.
func WithRounding(spec detmath.RoundingSpec) Option {
	return func(e *Estimator) {
		e.rounding = spec
	}
}

// WithMethodology sets the methodology used for avoided emissions when a
// request carries none.
func WithMethodology(m Methodology) Option {
	return func(e *Estimator) {
		e.methodology = &m
	}
}

// WithLogger attaches a logger for resolution diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Estimator) {
		e.logger = logger.With().Str("component", "carbon").Logger()
	}
}

// WithClock overrides the clock used to stamp result metadata.
func WithClock(now func() time.Time) Option {
	return func(e *Estimator) {
		e.now = now
	}
}

// NewEstimator creates an estimator. resolver may be nil when every request
// carries an explicit factor.
func NewEstimator(resolver FactorResolver, opts ...Option) *Estimator {
	e := &Estimator{
		resolver: resolver,
		rounding: detmath.DefaultRounding(),
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Convert converts req into a rounded result stamped with the factor's
// provenance. Uncertainty bounds are attached when the request or the resolved
// factor carries an uncertainty. Methodology is ignored.
func (e *Estimator) Convert(req ConversionRequest) (ConversionResult, error) {
	const op = "Estimator.Convert"

	spec, err := roundingFor(op, e.rounding)
	if err != nil {
		return ConversionResult{}, err
	}
	if err := checkEnergy(op, req.Energy); err != nil {
		return ConversionResult{}, err
	}
	sel, err := e.selectFactor(op, req)
	if err != nil {
		return ConversionResult{}, err
	}

	kWh, err := normalizedEnergy(op, req.Energy, req.Unit, sel.value)
	if err != nil {
		return ConversionResult{}, err
	}
	pct := sel.uncertainty
	if pct != nil {
		if err := checkUncertainty(op, *pct); err != nil {
			return ConversionResult{}, err
		}
	}
	kg, err := multiply(op, kWh, sel.value)
	if err != nil {
		return ConversionResult{}, err
	}

	res := buildResult(kWh, sel.value, kg, req.Unit, pct, spec)
	e.stamp(&res, sel)
	return res, nil
}

// Avoided computes avoided emissions for req. The request's methodology wins
// over the estimator's.
func (e *Estimator) Avoided(req ConversionRequest) (ConversionResult, error) {
	const op = "Estimator.Avoided"

	if err := checkEnergy(op, req.Energy); err != nil {
		return ConversionResult{}, err
	}
	sel, err := e.selectFactor(op, req)
	if err != nil {
		return ConversionResult{}, err
	}
	in := AvoidedInput{
		Energy:         req.Energy,
		Unit:           req.Unit,
		FactorKgPerKWh: sel.value,
		UncertaintyPct: sel.uncertainty,
		Methodology:    req.Methodology,
	}
	res, err := avoidedWith(op, in, e.methodology, e.rounding)
	if err != nil {
		return ConversionResult{}, err
	}
	e.stamp(&res, sel)
	return res, nil
}

// factorSelection is the factor value and provenance chosen for a request.
type factorSelection struct {
	value       float64
	uncertainty *float64
	factor      *factors.EmissionFactor
}

func (e *Estimator) selectFactor(op string, req ConversionRequest) (factorSelection, error) {
	if req.Query == nil {
		return factorSelection{value: req.FactorKgPerKWh, uncertainty: req.UncertaintyPct}, nil
	}
	if e.resolver == nil {
		return factorSelection{}, &calcerr.Error{
			Kind:   calcerr.RegistryUninitialized,
			Op:     op,
			Region: req.Query.Region,
			Scope:  string(req.Query.Scope),
			Date:   req.Query.Date,
			Detail: "no factor resolver configured",
		}
	}

	f, err := e.resolver.Resolve(*req.Query)
	if err != nil {
		e.logger.Debug().Err(err).
			Str("region", req.Query.Region).
			Str("scope", string(req.Query.Scope)).
			Msg("factor resolution failed")
		return factorSelection{}, err
	}
	e.logger.Debug().
		Str("factor_id", f.ID).
		Str("region", f.Region).
		Str("scope", string(f.Scope)).
		Float64("kg_per_kwh", f.ValueKgPerKWh).
		Msg("factor resolved")

	sel := factorSelection{value: f.ValueKgPerKWh, uncertainty: f.UncertaintyPct, factor: &f}
	if req.UncertaintyPct != nil {
		sel.uncertainty = req.UncertaintyPct
	}
	return sel, nil
}

func (e *Estimator) stamp(res *ConversionResult, sel factorSelection) {
	ts := e.now().UTC()
	res.Metadata.Timestamp = &ts
	if sel.factor != nil {
		res.Metadata.FactorID = sel.factor.ID
		res.Metadata.Region = sel.factor.Region
		res.Metadata.Scope = sel.factor.Scope
	}
}
