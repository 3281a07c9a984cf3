package planlimits

import (
	"context"
	"fmt"
	"os"
)

// Source defines how the plan table is loaded.
type Source interface {
	Load(ctx context.Context) (Table, error)
}

type inMemSource struct {
	table Table
}

// NewInMemSource returns a Source serving a copy of table.
func NewInMemSource(table Table) Source {
	return &inMemSource{table: table.Clone()}
}

func (s *inMemSource) Load(ctx context.Context) (Table, error) {
	return s.table.Clone(), nil
}

type yamlFileSource struct {
	path string
}

// NewYAMLSource reads the plan table from a YAML file on every Load.
func NewYAMLSource(path string) Source {
	return &yamlFileSource{path: path}
}

func (s *yamlFileSource) Load(ctx context.Context) (Table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open plan file: %w", err)
	}
	defer f.Close()
	return DecodeYAML(f)
}
