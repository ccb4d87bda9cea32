// Package factorpack decodes and validates factor pack documents and installs
// them into a factors.Registry.
//
// A pack is a YAML or JSON document carrying region mappings and an ordered
// list of emission factors. Documents are checked against an embedded CUE
// schema, their schemaVersion against a semver constraint, and every record
// against factors.EmissionFactor.Validate before a Pack is returned. Packs
// arrive and leave as bytes; this package never opens files.
package factorpack

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/rshade/co2e-engine/internal/calcerr"
	"github.com/rshade/co2e-engine/internal/factors"
)

const (
	// SupportedSchema is the semver constraint a pack's schemaVersion must satisfy.
	SupportedSchema = "^1.0.0"

	// CurrentSchema is the schemaVersion written by EncodeYAML.
	CurrentSchema = "1.0.0"
)

// Pack is a decoded, validated factor pack.
type Pack struct {
	SchemaVersion *semver.Version
	Name          string
	Version       *semver.Version // nil when the document omits it
	Regions       []factors.RegionMapping
	Factors       []factors.EmissionFactor
}

// document is the wire form shared by the YAML and JSON decoders.
type document struct {
	SchemaVersion string         `yaml:"schemaVersion" json:"schemaVersion"`
	Name          string         `yaml:"name" json:"name"`
	Version       string         `yaml:"version,omitempty" json:"version"`
	Regions       []regionRecord `yaml:"regions,omitempty" json:"regions"`
	Factors       []factorRecord `yaml:"factors" json:"factors"`
}

type regionRecord struct {
	Code  string `yaml:"code" json:"code"`
	Name  string `yaml:"name" json:"name"`
	ISO2  string `yaml:"iso2,omitempty" json:"iso2"`
	ISO3  string `yaml:"iso3,omitempty" json:"iso3"`
	UNM49 string `yaml:"unM49,omitempty" json:"unM49"`
}

type sourceRecord struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url,omitempty" json:"url"`
	Date string `yaml:"date,omitempty" json:"date"`
	Note string `yaml:"note,omitempty" json:"note"`
}

type factorRecord struct {
	ID             string       `yaml:"id" json:"id"`
	Region         string       `yaml:"region" json:"region"`
	Scope          string       `yaml:"scope" json:"scope"`
	Gas            string       `yaml:"gas" json:"gas"`
	ValueKgPerKWh  float64      `yaml:"valueKgPerKWh" json:"valueKgPerKWh"`
	EffectiveFrom  string       `yaml:"effectiveFrom" json:"effectiveFrom"`
	EffectiveTo    string       `yaml:"effectiveTo,omitempty" json:"effectiveTo"`
	Source         sourceRecord `yaml:"source" json:"source"`
	UncertaintyPct *float64     `yaml:"uncertaintyPct,omitempty" json:"uncertaintyPct"`
	Version        string       `yaml:"version,omitempty" json:"version"`
}

// DecodeYAML decodes and validates a YAML factor pack. Unknown fields are rejected.
func DecodeYAML(data []byte) (*Pack, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, &calcerr.Error{Kind: calcerr.InvalidPack, Op: "DecodeYAML", Err: err}
	}
	return build("DecodeYAML", doc)
}

// DecodeJSON decodes and validates a JSON factor pack. Unknown fields are rejected.
func DecodeJSON(data []byte) (*Pack, error) {
	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, &calcerr.Error{Kind: calcerr.InvalidPack, Op: "DecodeJSON", Err: err}
	}
	return build("DecodeJSON", doc)
}

// Decode picks the JSON decoder when the document starts with '{' and the
// YAML decoder otherwise.
func Decode(data []byte) (*Pack, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return DecodeJSON(data)
	}
	return DecodeYAML(data)
}

// build validates the wire document and converts it into a Pack.
func build(op string, doc document) (*Pack, error) {
	invalid := func(err error) error {
		return &calcerr.Error{Kind: calcerr.InvalidPack, Op: op, Err: err}
	}

	if err := validateSchema(doc); err != nil {
		return nil, invalid(err)
	}

	schemaVersion, err := checkSchemaVersion(doc.SchemaVersion)
	if err != nil {
		return nil, invalid(err)
	}

	pack := &Pack{
		SchemaVersion: schemaVersion,
		Name:          doc.Name,
		Regions:       make([]factors.RegionMapping, 0, len(doc.Regions)),
		Factors:       make([]factors.EmissionFactor, 0, len(doc.Factors)),
	}
	if doc.Version != "" {
		v, verr := semver.NewVersion(doc.Version)
		if verr != nil {
			return nil, invalid(fmt.Errorf("pack version %q: %w", doc.Version, verr))
		}
		pack.Version = v
	}

	for _, r := range doc.Regions {
		pack.Regions = append(pack.Regions, factors.RegionMapping(r))
	}

	for i, rec := range doc.Factors {
		f, ferr := rec.toFactor()
		if ferr != nil {
			return nil, invalid(fmt.Errorf("factors[%d]: %w", i, ferr))
		}
		pack.Factors = append(pack.Factors, f)
	}

	// Catch duplicate ids, alias clashes and the remaining record invariants
	// with the same code the registry runs at load time.
	if _, err := factors.NewSnapshot(pack.Factors, pack.Regions); err != nil {
		return nil, invalid(err)
	}

	return pack, nil
}

func (r factorRecord) toFactor() (factors.EmissionFactor, error) {
	from, err := factors.ParseDate(r.EffectiveFrom)
	if err != nil {
		return factors.EmissionFactor{}, fmt.Errorf("%s effectiveFrom: %w", r.ID, err)
	}

	f := factors.EmissionFactor{
		ID:             r.ID,
		Region:         strings.ToUpper(r.Region),
		Scope:          factors.Scope(r.Scope),
		Gas:            r.Gas,
		ValueKgPerKWh:  r.ValueKgPerKWh,
		EffectiveFrom:  from,
		Source:         factors.Source(r.Source),
		UncertaintyPct: r.UncertaintyPct,
		Version:        r.Version,
	}
	if f.Gas == "" {
		f.Gas = factors.GasCO2e
	}
	if r.EffectiveTo != "" {
		to, terr := factors.ParseDate(r.EffectiveTo)
		if terr != nil {
			return factors.EmissionFactor{}, fmt.Errorf("%s effectiveTo: %w", r.ID, terr)
		}
		f.EffectiveTo = &to
	}
	return f, f.Validate()
}

// checkSchemaVersion parses v and checks it against SupportedSchema.
func checkSchemaVersion(v string) (*semver.Version, error) {
	version, err := semver.NewVersion(v)
	if err != nil {
		return nil, fmt.Errorf("schemaVersion %q: %w", v, err)
	}
	constraint, err := semver.NewConstraint(SupportedSchema)
	if err != nil {
		return nil, err
	}
	if !constraint.Check(version) {
		return nil, fmt.Errorf("schemaVersion %s is not supported (want %s)", version, SupportedSchema)
	}
	return version, nil
}

// Install loads the pack into reg, replacing its current table.
func Install(reg *factors.Registry, p *Pack) (*factors.Snapshot, error) {
	return reg.Load(p.Factors, p.Regions)
}

// String returns "name@version", or just the name for unversioned packs.
func (p *Pack) String() string {
	if p.Version == nil {
		return p.Name
	}
	return p.Name + "@" + p.Version.String()
}

// Supersedes reports whether p is a newer release of the same pack than other.
func (p *Pack) Supersedes(other *Pack) bool {
	if other == nil {
		return true
	}
	if p.Name != other.Name || p.Version == nil || other.Version == nil {
		return false
	}
	return p.Version.GreaterThan(other.Version)
}
