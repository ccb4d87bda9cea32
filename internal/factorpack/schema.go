package factorpack

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var packSchema string

// validateSchema checks the document shape and numeric bounds against the
// #Pack definition. Optional fields are only emitted when present so that the
// schema's optional markers apply.
func validateSchema(doc document) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(packSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling pack schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Pack"))

	value := ctx.Encode(doc.toMap())
	if err := value.Err(); err != nil {
		return fmt.Errorf("encoding pack: %w", err)
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("pack does not match schema: %w", err)
	}
	return nil
}

func (d document) toMap() map[string]any {
	m := map[string]any{
		"schemaVersion": d.SchemaVersion,
		"name":          d.Name,
	}
	putString(m, "version", d.Version)

	if len(d.Regions) > 0 {
		regions := make([]any, 0, len(d.Regions))
		for _, r := range d.Regions {
			rm := map[string]any{"code": r.Code, "name": r.Name}
			putString(rm, "iso2", r.ISO2)
			putString(rm, "iso3", r.ISO3)
			putString(rm, "unM49", r.UNM49)
			regions = append(regions, rm)
		}
		m["regions"] = regions
	}

	list := make([]any, 0, len(d.Factors))
	for _, f := range d.Factors {
		source := map[string]any{"name": f.Source.Name}
		putString(source, "url", f.Source.URL)
		putString(source, "date", f.Source.Date)
		putString(source, "note", f.Source.Note)

		fm := map[string]any{
			"id":            f.ID,
			"region":        f.Region,
			"scope":         f.Scope,
			"valueKgPerKWh": f.ValueKgPerKWh,
			"effectiveFrom": f.EffectiveFrom,
			"source":        source,
		}
		putString(fm, "gas", f.Gas)
		putString(fm, "effectiveTo", f.EffectiveTo)
		putString(fm, "version", f.Version)
		if f.UncertaintyPct != nil {
			fm["uncertaintyPct"] = *f.UncertaintyPct
		}
		list = append(list, fm)
	}
	m["factors"] = list

	return m
}

func putString(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}
