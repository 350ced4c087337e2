package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"localgroup/internal/element"
)

// Layout is the YAML element layout file:
//
//	radius: 8
//	elements:
//	  - {x: 0, y: 0}
//	  - {x: 12.5, y: -3}
type Layout struct {
	Radius   float64  `yaml:"radius,omitempty"`
	Jitter   *float64 `yaml:"jitter,omitempty"`
	Elements []struct {
		X float64 `yaml:"x"`
		Y float64 `yaml:"y"`
	} `yaml:"elements"`
}

// Points returns the element locations in file order.
func (l *Layout) Points() []element.Point {
	points := make([]element.Point, len(l.Elements))
	for i, e := range l.Elements {
		points[i] = element.Point{X: e.X, Y: e.Y}
	}
	return points
}

// ParseLayout decodes a layout document. Unknown keys are rejected.
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&l); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	return &l, nil
}

// LoadLayout reads a layout file.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	return ParseLayout(data)
}

// Apply copies the layout into c. Optional fields only override when set.
func (l *Layout) Apply(c *Config) {
	c.Elements = l.Points()
	if l.Radius > 0 {
		c.Radius = l.Radius
	}
	if l.Jitter != nil {
		c.Jitter = *l.Jitter
	}
}
