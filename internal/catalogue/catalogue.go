// Package catalogue loads named IRP protocol definitions from an XML or
// YAML document.
package catalogue

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pborges/irp/internal/irp"
)

type Format int

const (
	FormatXML Format = iota
	FormatYAML
)

var ErrUnknownProtocol = errors.New("unknown protocol")

type Protocol struct {
	Name string `xml:"name" yaml:"name"`
	IRP  string `xml:"irp" yaml:"irp"`
}

type document struct {
	XMLName   xml.Name   `xml:"protocols" yaml:"-"`
	Protocols []Protocol `xml:"protocol" yaml:"protocols"`
}

// Catalogue is an immutable set of protocols, kept in document order.
type Catalogue struct {
	protocols []Protocol
	byName    map[string]int
}

// Load reads a catalogue file; .yaml and .yml files are YAML, anything
// else is XML.
func Load(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format := FormatXML
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}
	c, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Parse(data []byte, format Format) (*Catalogue, error) {
	var doc document
	switch format {
	case FormatXML:
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("unexpected xml: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("unexpected yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown catalogue format %d", format)
	}

	c := &Catalogue{byName: make(map[string]int)}
	for _, p := range doc.Protocols {
		p.Name = strings.TrimSpace(p.Name)
		p.IRP = strings.TrimSpace(p.IRP)
		if p.Name == "" {
			return nil, fmt.Errorf("protocol %d has no name", len(c.protocols)+1)
		}
		key := strings.ToLower(p.Name)
		if _, ok := c.byName[key]; ok {
			return nil, fmt.Errorf("protocol %q defined twice", p.Name)
		}
		c.byName[key] = len(c.protocols)
		c.protocols = append(c.protocols, p)
	}
	return c, nil
}

// Lookup finds a protocol by name, ignoring case.
func (c *Catalogue) Lookup(name string) (Protocol, bool) {
	i, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Protocol{}, false
	}
	return c.protocols[i], true
}

func (c *Catalogue) Names() []string {
	names := make([]string, len(c.protocols))
	for i, p := range c.protocols {
		names[i] = p.Name
	}
	return names
}

func (c *Catalogue) Len() int { return len(c.protocols) }

// Protocol parses the IRP text of the named protocol.
func (c *Catalogue) Protocol(name string) (*irp.Protocol, error) {
	p, ok := c.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownProtocol)
	}
	proto, err := irp.Parse(p.IRP)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name, err)
	}
	return proto, nil
}
