package catalog

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies a catalog file encoding.
type Format string

// Format constants.
const (
	FormatXML  Format = "xml"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the catalog format from the file extension.
//
// Postcondition: Returns the format, or an error for unsupported extensions.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return FormatXML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unsupported catalog extension %q", ErrMalformedCatalog, filepath.Ext(path))
	}
}

// LoadFile reads and validates a catalog file of the given kind.
//
// Precondition: kind must be KindPower or KindTrait.
// Postcondition: Returns a Catalog, or an error wrapping ErrCatalogNotFound,
// ErrMalformedCatalog or ErrDuplicateRecord.
func LoadFile(kind Kind, path string) (*Catalog, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, path)
		}
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	c, err := LoadBytes(kind, format, data)
	if err != nil {
		return nil, fmt.Errorf("loading %s catalog %s: %w", kind, path, err)
	}
	return c, nil
}

// LoadBytes parses and validates catalog data of the given kind and format.
//
// Postcondition: Returns a Catalog or a non-nil error; loading the same data
// twice yields structurally equal catalogs.
func LoadBytes(kind Kind, format Format, data []byte) (*Catalog, error) {
	var (
		records []Record
		err     error
	)
	switch format {
	case FormatXML:
		records, err = parseXML(kind, data)
	case FormatYAML:
		records, err = parseYAML(kind, data)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrMalformedCatalog, format)
	}
	if err != nil {
		return nil, err
	}
	return New(kind, records)
}

// xmlDocument mirrors <powers><Power><Name>…</Name>…</Power></powers>. Element
// names are matched case-insensitively since the power and trait files
// disagree on capitalisation.
type xmlDocument struct {
	XMLName xml.Name
	Entries []xmlEntry `xml:",any"`
}

type xmlEntry struct {
	XMLName xml.Name
	Fields  []xmlField `xml:",any"`
}

type xmlField struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}

func parseXML(kind Kind, data []byte) ([]Record, error) {
	var doc xmlDocument
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: parsing XML: %w", ErrMalformedCatalog, err)
	}
	if err := expectXMLEnd(dec); err != nil {
		return nil, fmt.Errorf("%w: parsing XML: %w", ErrMalformedCatalog, err)
	}
	records := make([]Record, 0, len(doc.Entries))
	for _, entry := range doc.Entries {
		if !strings.EqualFold(entry.XMLName.Local, string(kind)) {
			continue
		}
		n := len(records) + 1
		r := Record{Kind: kind}
		seen := make(map[string]bool, len(entry.Fields))
		for _, f := range entry.Fields {
			tag := strings.ToLower(f.XMLName.Local)
			if seen[tag] {
				return nil, fmt.Errorf("%w: entry %d: duplicate <%s>", ErrMalformedCatalog, n, f.XMLName.Local)
			}
			seen[tag] = true
			assignXMLField(&r, tag, strings.TrimSpace(f.Text))
		}
		records = append(records, r)
	}
	return records, nil
}

// expectXMLEnd drains dec after the root element. Only whitespace, comments,
// processing instructions and directives may follow it.
func expectXMLEnd(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst, xml.Directive:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return fmt.Errorf("unexpected content %q after root element", bytes.TrimSpace(t))
			}
		default:
			return fmt.Errorf("unexpected %T after root element", tok)
		}
	}
}

// assignXMLField copies a known attribute into r. Unknown tags are ignored.
func assignXMLField(r *Record, tag, text string) {
	switch tag {
	case "name":
		r.Name = text
	case "powerset", "power_set", "powersets":
		r.PowerSets = SplitPowerSets(text)
	case "description":
		r.Description = text
	case "prerequisites", "prerequisite":
		r.Prerequisites = text
	case "action":
		r.Action = text
	case "trigger":
		r.Trigger = text
	case "duration":
		r.Duration = text
	case "range":
		r.Range = text
	case "cost":
		r.Cost = text
	case "effect":
		r.Effect = text
	}
}

type yamlRecord struct {
	Name          string   `yaml:"name"`
	PowerSets     []string `yaml:"power_sets"`
	Description   string   `yaml:"description"`
	Prerequisites string   `yaml:"prerequisites"`
	Action        string   `yaml:"action"`
	Trigger       string   `yaml:"trigger"`
	Duration      string   `yaml:"duration"`
	Range         string   `yaml:"range"`
	Cost          string   `yaml:"cost"`
	Effect        string   `yaml:"effect"`
}

type yamlCatalogFile struct {
	Powers []yamlRecord `yaml:"powers"`
	Traits []yamlRecord `yaml:"traits"`
}

func parseYAML(kind Kind, data []byte) ([]Record, error) {
	var file yamlCatalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: parsing YAML: %w", ErrMalformedCatalog, err)
	}

	entries, other := file.Powers, file.Traits
	if kind == KindTrait {
		entries, other = file.Traits, file.Powers
	}
	if len(other) > 0 {
		return nil, fmt.Errorf("%w: %s catalog contains a non-%s section", ErrMalformedCatalog, kind, kind)
	}

	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, Record{
			Kind:          kind,
			Name:          e.Name,
			PowerSets:     e.PowerSets,
			Description:   e.Description,
			Prerequisites: e.Prerequisites,
			Action:        e.Action,
			Trigger:       e.Trigger,
			Duration:      e.Duration,
			Range:         e.Range,
			Cost:          e.Cost,
			Effect:        e.Effect,
		})
	}
	return records, nil
}
