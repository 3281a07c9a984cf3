package planlimits

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type planFile struct {
	Plans map[string]Plan `yaml:"plans"`
}

// DecodeYAML reads a plan table:
//
//	plans:
//	  basic:
//	    name: Basic
//	    limits: {workspaces: 1, members: 3, storageGB: 5, aiGenerationsPerMonth: 30}
//	    price: {amount: 0, currency: INR}
//	    interval: none
//	  custom:
//	    limits: {workspaces: unlimited, ...}
//
// Unknown fields and unknown tiers are rejected. The result is not validated;
// NewResolver does that.
func DecodeYAML(r io.Reader) (Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file planFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty plan file", ErrInvalidPlanConfiguration)
		}
		return nil, errors.Join(ErrInvalidPlanConfiguration, err)
	}

	table := make(Table, len(file.Plans))
	for key, plan := range file.Plans {
		tier, err := ParseTier(key)
		if err != nil {
			return nil, err
		}
		plan.Tier = tier
		table[tier] = plan
	}
	return table, nil
}

// EncodeYAML writes t in the format read by DecodeYAML.
func EncodeYAML(w io.Writer, t Table) error {
	file := planFile{Plans: make(map[string]Plan, len(t))}
	for tier, plan := range t {
		file.Plans[string(tier)] = plan
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return err
	}
	return enc.Close()
}
