package main

import (
	"github.com/spf13/cobra"

	"github.com/rshade/co2e-engine/internal/factors"
)

func newResolveCmd(a *app) *cobra.Command {
	var region, scope, date string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show the factor that applies to a region, scope and date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := factors.ParseScope(scope)
			if err != nil {
				return err
			}
			q := factors.Query{Region: region, Scope: s}
			if date != "" {
				if q.Date, err = factors.ParseDate(date); err != nil {
					return err
				}
			}
			f, err := a.registry.Resolve(q)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), envelope{TraceID: a.traceID, Result: f})
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "region code or alias (required)")
	cmd.Flags().StringVar(&scope, "scope", string(factors.Operational), "factor scope")
	cmd.Flags().StringVar(&date, "date", "", "effective date, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("region")
	return cmd
}

func newFactorsCmd(a *app) *cobra.Command {
	var region, scope string

	cmd := &cobra.Command{
		Use:   "factors",
		Short: "List loaded emission factors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := factors.Filter{Region: region}
			if scope != "" {
				s, err := factors.ParseScope(scope)
				if err != nil {
					return err
				}
				filter.Scope = s
			}
			list := a.registry.List(filter)
			if list == nil {
				list = []factors.EmissionFactor{}
			}
			return writeJSON(cmd.OutOrStdout(), envelope{TraceID: a.traceID, Result: list})
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "only factors for this region")
	cmd.Flags().StringVar(&scope, "scope", "", "only factors with this scope")
	return cmd
}
