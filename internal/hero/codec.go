package hero

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// document is the on-disk shape of a hero file. The key names match the
// files written by earlier releases so those files keep loading.
type document struct {
	ID     string   `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty"`
	Name   string   `json:"hero_name" yaml:"hero_name" toml:"hero_name"`
	Powers []string `json:"selected_powers" yaml:"selected_powers" toml:"selected_powers"`
	Traits []string `json:"selected_traits" yaml:"selected_traits" toml:"selected_traits"`
}

// Codec encodes and decodes hero documents. Decoders reject unknown keys.
type Codec interface {
	// Name returns the codec's file extension without the dot.
	Name() string
	marshal(doc document) ([]byte, error)
	unmarshal(data []byte, doc *document) error
}

// Codecs by file extension.
var (
	JSON Codec = jsonCodec{}
	YAML Codec = yamlCodec{}
	TOML Codec = tomlCodec{}
)

// CodecFor returns the codec for path's extension, defaulting to JSON.
func CodecFor(path string) Codec {
	return CodecByName(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// CodecByName returns the codec registered under name ("json", "yaml",
// "yml" or "toml"), defaulting to JSON.
func CodecByName(name string) Codec {
	switch strings.ToLower(name) {
	case "yaml", "yml":
		return YAML
	case "toml":
		return TOML
	default:
		return JSON
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) marshal(doc document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (jsonCodec) unmarshal(data []byte, doc *document) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var p *document
	if err := dec.Decode(&p); err != nil {
		return err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return deref(p, doc)
}

type yamlCodec struct{}

func (yamlCodec) Name() string { return "yaml" }

func (yamlCodec) marshal(doc document) ([]byte, error) {
	return yaml.Marshal(doc)
}

func (yamlCodec) unmarshal(data []byte, doc *document) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var p *document
	if err := dec.Decode(&p); err != nil {
		return err
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return deref(p, doc)
}

type tomlCodec struct{}

func (tomlCodec) Name() string { return "toml" }

func (tomlCodec) marshal(doc document) ([]byte, error) {
	return toml.Marshal(doc)
}

func (tomlCodec) unmarshal(data []byte, doc *document) error {
	return toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(doc)
}

var (
	errTrailingData = errors.New("unexpected data after the hero document")
	errNotMapping   = errors.New("hero document is not a mapping")
)

// deref copies a decoded top-level document into doc. A nil p means the
// file held a null document.
func deref(p *document, doc *document) error {
	if p == nil {
		return errNotMapping
	}
	*doc = *p
	return nil
}
