package customer

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileDocument struct {
	Customers []Customer `yaml:"customers"`
}

// FileDirectory reads customers from a YAML document on every List call.
type FileDirectory struct {
	path string
}

func NewFileDirectory(path string) *FileDirectory {
	return &FileDirectory{path: path}
}

func (d *FileDirectory) List(context.Context) ([]Customer, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("FileDirectory.List: %w", err)
	}

	customers, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("FileDirectory.List: %s: %w", d.path, err)
	}

	return customers, nil
}

// Parse decodes a YAML customers document.
func Parse(data []byte) ([]Customer, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	for i, c := range doc.Customers {
		if c.ID == "" {
			return nil, fmt.Errorf("customer #%d (%q) has no customer_id", i+1, c.Name)
		}
	}

	return doc.Customers, nil
}
