// Package template is the template registry (C3): for each registered
// PDT/GDT/DRT number it returns the ordered list of field widths and sign
// conventions needed to decode or encode that template's body.
//
// The static width tables are data, not code: they are declared in TOML
// fixtures under tables/ (embedded with go:embed, parsed with
// github.com/BurntSushi/toml) and loaded once, on the first call to
// Default, the way spatialmodel-inmap and
// influxdata-influxdb push static reference tables out of Go source and
// into config files read at startup. Extension rules — where the number
// of trailing repeating groups depends on an already-decoded value — are
// inherently template-specific logic and stay in Go.
package template

import (
	"embed"
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/wxgrid/grib2/bitio"
	"github.com/wxgrid/grib2/griberr"
)

//go:embed tables/*.toml
var tableFS embed.FS

// Kind distinguishes the three template families.
type Kind int

const (
	KindGDT Kind = iota
	KindPDT
	KindDRT
)

func (k Kind) String() string {
	switch k {
	case KindGDT:
		return "GDT"
	case KindPDT:
		return "PDT"
	case KindDRT:
		return "DRT"
	default:
		return "unknown"
	}
}

// Field describes one template entry.
type Field struct {
	WidthOctets int
	Sign        bitio.SignConvention
}

// Spec is the decoded shape of one template: its static prefix fields,
// and, if NeedsExtension, the parameters needed to compute the trailing
// repeating groups once the prefix has been decoded.
type Spec struct {
	Number Number
	Fields []Field

	NeedsExtension     bool
	extensionGroup     []Field
	extensionCountIdx  int
}

// Number is a (Kind, template number) pair.
type Number struct {
	Kind Kind
	Num  int
}

func (n Number) String() string { return fmt.Sprintf("%s.%d", n.Kind, n.Num) }

type rawTemplate struct {
	Number                   int    `toml:"number"`
	Widths                   []int  `toml:"widths"`
	Signed                   []bool `toml:"signed"`
	NeedsExtension           bool   `toml:"needs_extension"`
	ExtensionGroupWidths     []int  `toml:"extension_group_widths"`
	ExtensionGroupSigned     []bool `toml:"extension_group_signed"`
	ExtensionCountFieldIndex int    `toml:"extension_count_field_index"`
}

type rawTable struct {
	Template []rawTemplate `toml:"template"`
}

// Registry holds the loaded template specs for all three families.
type Registry struct {
	mu    sync.RWMutex
	specs map[Number]Spec
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
	defaultErr  error
)

// Default returns the package-wide registry, loaded from the embedded
// TOML fixtures on first use.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = loadEmbedded()
	})
	return defaultReg, defaultErr
}

func loadEmbedded() (*Registry, error) {
	r := &Registry{specs: make(map[Number]Spec)}
	files := map[Kind]string{
		KindGDT: "tables/gdt.toml",
		KindPDT: "tables/pdt.toml",
		KindDRT: "tables/drt.toml",
	}
	for kind, name := range files {
		data, err := tableFS.ReadFile(name)
		if err != nil {
			return nil, errors.Wrapf(err, "template: reading %s", name)
		}
		var raw rawTable
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, errors.Wrapf(err, "template: parsing %s", name)
		}
		for _, rt := range raw.Template {
			spec, err := buildSpec(kind, rt)
			if err != nil {
				return nil, errors.Wrapf(err, "template: %s.%d", kind, rt.Number)
			}
			r.specs[Number{Kind: kind, Num: rt.Number}] = spec
		}
	}
	return r, nil
}

func buildSpec(kind Kind, rt rawTemplate) (Spec, error) {
	if len(rt.Widths) != len(rt.Signed) {
		return Spec{}, errors.New("widths and signed arrays must have equal length")
	}
	spec := Spec{
		Number: Number{Kind: kind, Num: rt.Number},
		Fields: make([]Field, len(rt.Widths)),
	}
	for i, w := range rt.Widths {
		spec.Fields[i] = Field{WidthOctets: w, Sign: signOf(rt.Signed[i])}
	}
	if rt.NeedsExtension {
		if len(rt.ExtensionGroupWidths) != len(rt.ExtensionGroupSigned) {
			return Spec{}, errors.New("extension_group_widths and extension_group_signed must have equal length")
		}
		spec.NeedsExtension = true
		spec.extensionCountIdx = rt.ExtensionCountFieldIndex
		spec.extensionGroup = make([]Field, len(rt.ExtensionGroupWidths))
		for i, w := range rt.ExtensionGroupWidths {
			spec.extensionGroup[i] = Field{WidthOctets: w, Sign: signOf(rt.ExtensionGroupSigned[i])}
		}
	}
	return spec, nil
}

func signOf(signed bool) bitio.SignConvention {
	if signed {
		return bitio.Signed
	}
	return bitio.Unsigned
}

// Lookup returns the static Spec for a template number, or
// griberr.ErrUnsupportedTemplate if it isn't registered.
func (r *Registry) Lookup(kind Kind, number int) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[Number{Kind: kind, Num: number}]
	if !ok {
		return Spec{}, errors.Wrapf(griberr.ErrUnsupportedTemplate, "%s.%d", kind, number)
	}
	return spec, nil
}

// Extend returns the full field list for a template whose static Spec
// declares NeedsExtension, given the values already decoded from the
// static prefix (in the same order as Spec.Fields). For non-extending
// templates it just returns spec.Fields.
func (spec Spec) Extend(decodedPrefix []int64) ([]Field, error) {
	if !spec.NeedsExtension {
		return spec.Fields, nil
	}
	if spec.extensionCountIdx < 0 || spec.extensionCountIdx >= len(decodedPrefix) {
		return nil, errors.Errorf("template %s: extension count field index %d out of range", spec.Number, spec.extensionCountIdx)
	}
	count := int(decodedPrefix[spec.extensionCountIdx])
	if count < 0 {
		return nil, errors.Errorf("template %s: negative extension repeat count %d", spec.Number, count)
	}
	out := make([]Field, len(spec.Fields), len(spec.Fields)+count*len(spec.extensionGroup))
	copy(out, spec.Fields)
	for i := 0; i < count; i++ {
		out = append(out, spec.extensionGroup...)
	}
	return out, nil
}

// Decode decodes raw bitio-packed octets into template values using the
// (possibly extended) field list. data must be at least as long as the
// sum of field widths.
func Decode(fields []Field, data []byte) []int64 {
	values := make([]int64, len(fields))
	bitOffset := 0
	for i, f := range fields {
		values[i] = bitio.GetSignedOrUnsigned(data, bitOffset, f.WidthOctets, f.Sign)
		bitOffset += f.WidthOctets * 8
	}
	return values
}

// Encode is the inverse of Decode: it writes values into a freshly
// allocated buffer sized to fit the field list exactly.
func Encode(fields []Field, values []int64) ([]byte, error) {
	if len(values) != len(fields) {
		return nil, errors.Errorf("template: encode expected %d values, got %d", len(fields), len(values))
	}
	total := 0
	for _, f := range fields {
		total += f.WidthOctets
	}
	buf := make([]byte, total)
	bitOffset := 0
	for i, f := range fields {
		bitio.PutSignedOrUnsigned(buf, bitOffset, f.WidthOctets, f.Sign, values[i])
		bitOffset += f.WidthOctets * 8
	}
	return buf, nil
}

// WidthOctets returns the total octet length of a (possibly extended)
// field list.
func WidthOctets(fields []Field) int {
	total := 0
	for _, f := range fields {
		total += f.WidthOctets
	}
	return total
}
