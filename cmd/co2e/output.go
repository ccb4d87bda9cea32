package main

import (
	"io"

	"github.com/goccy/go-json"

	"github.com/rshade/co2e-engine/internal/audit"
	"github.com/rshade/co2e-engine/internal/carbon"
)

// envelope is the JSON document written to stdout by every subcommand.
type envelope struct {
	TraceID string        `json:"traceId"`
	Result  any           `json:"result"`
	Audit   *audit.Record `json:"audit,omitempty"`
}

// requestDoc is the calculation input as recorded in the audit digest.
type requestDoc struct {
	Energy         float64             `json:"energy"`
	Unit           string              `json:"unit"`
	FactorKgPerKWh *float64            `json:"factorKgPerKWh,omitempty"`
	Region         string              `json:"region,omitempty"`
	Scope          string              `json:"scope,omitempty"`
	Date           string              `json:"date,omitempty"`
	UncertaintyPct *float64            `json:"uncertaintyPct,omitempty"`
	Methodology    *carbon.Methodology `json:"methodology,omitempty"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
