package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lozio/venues/internal/core"
)

// Manifest is the optional lozio.yaml file. It can move the data and output
// directories, override where a registered entity reads and writes, and
// declare extra entities mapped by column rules.
//
//	data_dir: data
//	output_dir: src/data
//	jobs:
//	  - entity: venues
//	    source: locali.csv
//	  - entity: events
//	    source: events.csv
//	    output: events.ts
//	    id: id
//	    filter: published
//	    fields:
//	      - {name: id}
//	      - {name: title}
//	      - {name: capacity, type: int, omit: true}
type Manifest struct {
	DataDir   string        `yaml:"data_dir"`
	OutputDir string        `yaml:"output_dir"`
	Encoding  string        `yaml:"encoding"`
	Jobs      []ManifestJob `yaml:"jobs"`
}

// ManifestJob configures one entity.
type ManifestJob struct {
	Entity string          `yaml:"entity"`
	Label  string          `yaml:"label"`
	Source string          `yaml:"source"`
	Output string          `yaml:"output"`
	Const  string          `yaml:"const"`
	ID     string          `yaml:"id"`
	IDKey  string          `yaml:"id_key"`
	Filter *string         `yaml:"filter"`
	Fields []ManifestField `yaml:"fields"`
}

// ManifestField is one column rule of an ad hoc entity.
type ManifestField struct {
	Name     string `yaml:"name"`
	Key      string `yaml:"key"`
	Type     string `yaml:"type"`
	Omit     bool   `yaml:"omit"`
	Required bool   `yaml:"required"`
}

// LoadManifest reads path. A missing file yields an empty manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes and validates manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	seen := make(map[string]bool)
	for i, job := range m.Jobs {
		if job.Entity == "" {
			return fmt.Errorf("manifest job %d: entity is required", i+1)
		}
		if seen[job.Entity] {
			return fmt.Errorf("manifest job %s: listed twice", job.Entity)
		}
		seen[job.Entity] = true

		if _, registered := core.Get(job.Entity); registered {
			if len(job.Fields) > 0 {
				return fmt.Errorf("manifest job %s: fields cannot be set on a built-in entity", job.Entity)
			}
			continue
		}
		if len(job.Fields) == 0 {
			return fmt.Errorf("manifest job %s: unknown entity needs fields", job.Entity)
		}
		if job.ID == "" {
			return fmt.Errorf("manifest job %s: id column is required", job.Entity)
		}
		for _, f := range job.Fields {
			if f.Name == "" {
				return fmt.Errorf("manifest job %s: field without name", job.Entity)
			}
			if _, ok := core.ParseFieldType(f.Type); !ok {
				return fmt.Errorf("manifest job %s: field %s: unknown type %q", job.Entity, f.Name, f.Type)
			}
		}
	}
	return nil
}

// Definitions returns every registered entity, with manifest overrides
// applied, followed by the manifest's ad hoc entities in file order.
func (m *Manifest) Definitions() []core.EntityDefinition {
	jobs := make(map[string]ManifestJob, len(m.Jobs))
	for _, job := range m.Jobs {
		jobs[job.Entity] = job
	}

	defs := core.All()
	for i, def := range defs {
		if job, ok := jobs[def.Info.Key]; ok {
			defs[i] = job.apply(def)
		}
	}

	for _, job := range m.Jobs {
		if _, registered := core.Get(job.Entity); registered {
			continue
		}
		defs = append(defs, job.adHoc())
	}
	return defs
}

func (j ManifestJob) apply(def core.EntityDefinition) core.EntityDefinition {
	if j.Label != "" {
		def.Info.Label = j.Label
	}
	if j.Source != "" {
		def.Info.Source = j.Source
	}
	if j.Output != "" {
		def.Info.Output = j.Output
	}
	if j.Const != "" {
		def.Info.ConstName = j.Const
	}
	if j.Filter != nil {
		def.Info.FilterColumn = *j.Filter
	}
	return def
}

func (j ManifestJob) adHoc() core.EntityDefinition {
	specs := make([]core.FieldSpec, len(j.Fields))
	for i, f := range j.Fields {
		typ, _ := core.ParseFieldType(f.Type)
		specs[i] = core.FieldSpec{Name: f.Name, Key: f.Key, Type: typ, Omit: f.Omit, Required: f.Required}
	}

	idKey := j.IDKey
	if idKey == "" {
		idKey = j.ID
		for _, s := range specs {
			if strings.EqualFold(s.Name, j.ID) {
				idKey = s.OutputKey()
				break
			}
		}
	}

	info := core.EntityInfo{
		Key:       j.Entity,
		Label:     j.Label,
		Source:    j.Source,
		Output:    j.Output,
		ConstName: j.Const,
		IDColumn:  j.ID,
		IDKey:     idKey,
	}
	if info.Label == "" {
		info.Label = j.Entity
	}
	if info.Source == "" {
		info.Source = j.Entity + ".csv"
	}
	if info.Output == "" {
		info.Output = j.Entity + ".ts"
	}
	if info.ConstName == "" {
		info.ConstName = j.Entity
	}
	if j.Filter != nil {
		info.FilterColumn = *j.Filter
	}

	return core.EntityDefinition{
		Info:       info,
		FieldSpecs: specs,
		Build:      core.RuleBuilder(specs),
		ID:         core.RecordID(idKey),
	}
}
