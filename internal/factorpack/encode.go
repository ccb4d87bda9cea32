package factorpack

import (
	"bytes"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rshade/co2e-engine/internal/calcerr"
)

// EncodeYAML renders p as a YAML pack document. A nil SchemaVersion is
// written as CurrentSchema. The output is not validated; decode it to check
// it.
func EncodeYAML(p *Pack) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p.document()); err != nil {
		return nil, &calcerr.Error{Kind: calcerr.InvalidPack, Op: "EncodeYAML", Err: err}
	}
	if err := enc.Close(); err != nil {
		return nil, &calcerr.Error{Kind: calcerr.InvalidPack, Op: "EncodeYAML", Err: err}
	}
	return buf.Bytes(), nil
}

func (p *Pack) document() document {
	doc := document{
		SchemaVersion: CurrentSchema,
		Name:          p.Name,
		Regions:       make([]regionRecord, 0, len(p.Regions)),
		Factors:       make([]factorRecord, 0, len(p.Factors)),
	}
	if p.SchemaVersion != nil {
		doc.SchemaVersion = p.SchemaVersion.String()
	}
	if p.Version != nil {
		doc.Version = p.Version.String()
	}

	for _, r := range p.Regions {
		doc.Regions = append(doc.Regions, regionRecord(r))
	}
	for _, f := range p.Factors {
		rec := factorRecord{
			ID:             f.ID,
			Region:         f.Region,
			Scope:          string(f.Scope),
			Gas:            f.Gas,
			ValueKgPerKWh:  f.ValueKgPerKWh,
			EffectiveFrom:  f.EffectiveFrom.Format(time.DateOnly),
			Source:         sourceRecord(f.Source),
			UncertaintyPct: f.UncertaintyPct,
			Version:        f.Version,
		}
		if f.EffectiveTo != nil {
			rec.EffectiveTo = f.EffectiveTo.Format(time.DateOnly)
		}
		doc.Factors = append(doc.Factors, rec)
	}
	return doc
}
