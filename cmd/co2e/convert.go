package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/co2e-engine/internal/calcerr"
	"github.com/rshade/co2e-engine/internal/carbon"
	"github.com/rshade/co2e-engine/internal/factors"
	"github.com/rshade/co2e-engine/internal/units"
)

// requestFlags are the flags shared by convert and avoided.
type requestFlags struct {
	energy      float64
	unit        string
	factor      float64
	region      string
	scope       string
	date        string
	uncertainty float64
}

func (f *requestFlags) register(cmd *cobra.Command, defaultScope factors.Scope) {
	cmd.Flags().Float64Var(&f.energy, "energy", 0, "energy quantity (required)")
	cmd.Flags().StringVar(&f.unit, "unit", string(units.KWh), "energy unit: kWh, MWh or GWh")
	cmd.Flags().Float64Var(&f.factor, "factor", 0, "emission factor in kg CO2e per kWh")
	cmd.Flags().StringVar(&f.region, "region", "", "resolve the factor for this region instead of --factor")
	cmd.Flags().StringVar(&f.scope, "scope", string(defaultScope), "factor scope: operational, marginal or baseline")
	cmd.Flags().StringVar(&f.date, "date", "", "factor effective date, YYYY-MM-DD (default: undated policy)")
	cmd.Flags().Float64Var(&f.uncertainty, "uncertainty", 0, "plus/minus uncertainty in percent")
	_ = cmd.MarkFlagRequired("energy")
}

// request builds the estimator request and the document recorded as audit
// input.
func (f *requestFlags) request(cmd *cobra.Command) (carbon.ConversionRequest, requestDoc, error) {
	factorSet := cmd.Flags().Changed("factor")
	if factorSet == (f.region != "") {
		return carbon.ConversionRequest{}, requestDoc{}, errors.New("exactly one of --factor or --region is required")
	}

	req := carbon.ConversionRequest{
		Energy: f.energy,
		Unit:   units.EnergyUnit(f.unit),
	}
	doc := requestDoc{Energy: f.energy, Unit: f.unit}

	if factorSet {
		req.FactorKgPerKWh = f.factor
		doc.FactorKgPerKWh = &f.factor
	} else {
		scope, err := factors.ParseScope(f.scope)
		if err != nil {
			return carbon.ConversionRequest{}, requestDoc{}, err
		}
		q := factors.Query{Region: f.region, Scope: scope}
		if f.date != "" {
			if q.Date, err = factors.ParseDate(f.date); err != nil {
				return carbon.ConversionRequest{}, requestDoc{}, err
			}
		}
		req.Query = &q
		doc.Region, doc.Scope, doc.Date = f.region, string(scope), f.date
	}

	if cmd.Flags().Changed("uncertainty") {
		req.UncertaintyPct = &f.uncertainty
		doc.UncertaintyPct = &f.uncertainty
	}
	return req, doc, nil
}

func newConvertCmd(a *app) *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert energy to CO2e",
		Example: `  # Direct factor
  co2e convert --energy 12345.678 --factor 0.708

  # Resolve the factor for a region and date
  co2e convert --energy 5.1 --unit MWh --region IN --date 2024-06-30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, doc, err := flags.request(cmd)
			if err != nil {
				return err
			}
			res, err := a.estimator.Convert(req)
			if err != nil {
				return err
			}
			return a.emit(cmd, "convert", doc, res)
		},
	}
	flags.register(cmd, factors.Operational)
	return cmd
}

func newAvoidedCmd(a *app) *cobra.Command {
	var (
		flags       requestFlags
		efficiency  float64
		degradation float64
	)

	cmd := &cobra.Command{
		Use:   "avoided",
		Short: "Compute avoided emissions against a baseline factor",
		Example: `  # Avoided emissions for 5100 kWh against the Indian baseline
  co2e avoided --energy 5100 --region IN --date 2024-06-30

  # With a delivery methodology
  co2e avoided --energy 1000 --factor 0.5 --efficiency 0.9 --degradation 0.1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, doc, err := flags.request(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("efficiency") && efficiency == 0 {
				return calcerr.New(calcerr.InvalidInput, "avoided").WithValue(efficiency).
					WithDetail("efficiency must be within (0, 1]")
			}
			if cmd.Flags().Changed("efficiency") || cmd.Flags().Changed("degradation") {
				m := a.cfg.Methodology.OrDefault()
				if cmd.Flags().Changed("efficiency") {
					m.Efficiency = efficiency
				}
				if cmd.Flags().Changed("degradation") {
					m.Degradation = degradation
				}
				req.Methodology = &m
				doc.Methodology = &m
			}
			res, err := a.estimator.Avoided(req)
			if err != nil {
				return err
			}
			return a.emit(cmd, "avoided", doc, res)
		},
	}
	flags.register(cmd, factors.Baseline)
	cmd.Flags().Float64Var(&efficiency, "efficiency", carbon.DefaultEfficiency, "fraction of energy delivered, in (0, 1]")
	cmd.Flags().Float64Var(&degradation, "degradation", carbon.DefaultDegradation, "fractional degradation, in [0, 1)")
	return cmd
}

// emit records the calculation and writes the result envelope.
func (a *app) emit(cmd *cobra.Command, operation string, doc requestDoc, res carbon.ConversionResult) error {
	rec, err := a.recorder.Record(operation, doc, res)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	a.logger.Info().
		Str("operation", operation).
		Float64("t_co2e", res.TCO2e).
		Str("audit_id", rec.ID.String()).
		Msg("calculation complete")
	return writeJSON(cmd.OutOrStdout(), envelope{TraceID: a.traceID, Result: res, Audit: &rec})
}
