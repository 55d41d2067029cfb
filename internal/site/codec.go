package site

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/xerrors"
)

// Format is a serialization format for documents.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", xerrors.Newf("unknown format %q (valid formats are json|yaml)", s)
	}
}

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", xerrors.Newf("cannot infer format of %q: no extension", path)
	}
	return ParseFormat(ext)
}

// Decode parses a document. Sections with an unrecognised kind decode into
// UnknownSection so Validate can report them; they are not a decode error.
func Decode(r io.Reader, f Format) (*Document, error) {
	var doc Document
	switch f {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, xerrors.Wrap(err, "decode json document")
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, xerrors.Wrap(err, "decode yaml document")
		}
	default:
		return nil, xerrors.Newf("unsupported format %q", f)
	}
	return &doc, nil
}

// Encode writes doc with the kind discriminator as the first key of every
// section. HTML in text fields is written unescaped.
func Encode(w io.Writer, doc *Document, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return xerrors.Wrap(enc.Encode(doc), "encode json document")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return xerrors.Wrap(err, "encode yaml document")
		}
		return xerrors.Wrap(enc.Close(), "close yaml encoder")
	default:
		return xerrors.Newf("unsupported format %q", f)
	}
}

// Marshal is Encode into a byte slice.
func Marshal(doc *Document, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JSON

func (s *FeaturesSection) MarshalJSON() ([]byte, error) {
	type plain FeaturesSection
	return marshalJSON(struct {
		Kind Kind `json:"kind"`
		plain
	}{KindFeatures, plain(*s)})
}

func (s *CodeCardsSection) MarshalJSON() ([]byte, error) {
	type plain CodeCardsSection
	return marshalJSON(struct {
		Kind Kind `json:"kind"`
		plain
	}{KindCodeCards, plain(*s)})
}

func (s *DataTableSection) MarshalJSON() ([]byte, error) {
	type plain DataTableSection
	return marshalJSON(struct {
		Kind Kind `json:"kind"`
		plain
	}{KindDataTable, plain(*s)})
}

func (s *UnknownSection) MarshalJSON() ([]byte, error) {
	return marshalJSON(s.flatten())
}

// marshalJSON is json.Marshal without HTML escaping, matching Encode.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (ss *Sections) UnmarshalJSON(b []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return xerrors.Wrap(err, "sections")
	}
	if raws == nil {
		*ss = nil
		return nil
	}
	out := make(Sections, 0, len(raws))
	for i, raw := range raws {
		s, err := decodeSectionJSON(raw)
		if err != nil {
			return xerrors.Wrapf(err, "sections[%d]", i)
		}
		out = append(out, s)
	}
	*ss = out
	return nil
}

func decodeSectionJSON(raw json.RawMessage) (Section, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var probe struct {
		Kind json.RawMessage `json:"kind"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	kind := jsonKind(probe.Kind)

	var target Section
	switch Kind(kind) {
	case KindFeatures:
		target = new(FeaturesSection)
	case KindCodeCards:
		target = new(CodeCardsSection)
	case KindDataTable:
		target = new(DataTableSection)
	default:
		fields := map[string]any{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
		return newUnknownSection(kind, fields), nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, xerrors.Wrapf(err, "decode %s section", kind)
	}
	return target, nil
}

// jsonKind reads the discriminator. A kind that is not a string is kept as
// its compact JSON text so it can be reported as an unknown variant.
func jsonKind(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// YAML

// yamlKind is jsonKind for YAML. Scalars of any tag keep their text, so
// kind: 5 and "kind": 5 both name the kind "5".
func yamlKind(n *yaml.Node) string {
	switch n.Kind {
	case 0:
		return ""
	case yaml.AliasNode:
		if n.Alias != nil {
			return yamlKind(n.Alias)
		}
		return ""
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return ""
		}
		return n.Value
	}
	flow := *n
	flow.Style = yaml.FlowStyle
	b, err := yaml.Marshal(&flow)
	if err != nil {
		return n.Tag
	}
	return strings.TrimSpace(string(b))
}

func (s *FeaturesSection) MarshalYAML() (any, error) {
	type plain FeaturesSection
	return struct {
		Kind  Kind `yaml:"kind"`
		plain `yaml:",inline"`
	}{KindFeatures, plain(*s)}, nil
}

func (s *CodeCardsSection) MarshalYAML() (any, error) {
	type plain CodeCardsSection
	return struct {
		Kind  Kind `yaml:"kind"`
		plain `yaml:",inline"`
	}{KindCodeCards, plain(*s)}, nil
}

func (s *DataTableSection) MarshalYAML() (any, error) {
	type plain DataTableSection
	return struct {
		Kind  Kind `yaml:"kind"`
		plain `yaml:",inline"`
	}{KindDataTable, plain(*s)}, nil
}

func (s *UnknownSection) MarshalYAML() (any, error) {
	return s.flatten(), nil
}

func (ss *Sections) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return xerrors.Newf("sections: line %d: expected a sequence", value.Line)
	}
	out := make(Sections, 0, len(value.Content))
	for i, item := range value.Content {
		s, err := decodeSectionYAML(item)
		if err != nil {
			return xerrors.Wrapf(err, "sections[%d]", i)
		}
		out = append(out, s)
	}
	*ss = out
	return nil
}

func decodeSectionYAML(n *yaml.Node) (Section, error) {
	if n.ShortTag() == "!!null" {
		return nil, nil
	}
	var probe struct {
		Kind yaml.Node `yaml:"kind"`
	}
	if err := n.Decode(&probe); err != nil {
		return nil, err
	}
	kind := yamlKind(&probe.Kind)

	var target Section
	switch Kind(kind) {
	case KindFeatures:
		target = new(FeaturesSection)
	case KindCodeCards:
		target = new(CodeCardsSection)
	case KindDataTable:
		target = new(DataTableSection)
	default:
		fields := map[string]any{}
		if err := n.Decode(&fields); err != nil {
			return nil, err
		}
		return newUnknownSection(kind, fields), nil
	}
	if err := n.Decode(target); err != nil {
		return nil, xerrors.Wrapf(err, "decode %s section at line %d", kind, n.Line)
	}
	return target, nil
}

func newUnknownSection(kind string, fields map[string]any) *UnknownSection {
	s := &UnknownSection{Name: kind}
	if v, ok := fields["id"].(string); ok {
		s.ID = v
	}
	if v, ok := fields["title"].(string); ok {
		s.Title = v
	}
	delete(fields, "kind")
	delete(fields, "id")
	delete(fields, "title")
	if len(fields) > 0 {
		s.Fields = fields
	}
	return s
}

func (s *UnknownSection) flatten() map[string]any {
	out := make(map[string]any, len(s.Fields)+3)
	for k, v := range s.Fields {
		out[k] = v
	}
	out["kind"] = s.Name
	if s.ID != "" {
		out["id"] = s.ID
	}
	if s.Title != "" {
		out["title"] = s.Title
	}
	return out
}
