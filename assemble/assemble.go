// Package assemble implements the message assembler (C8): incremental,
// stateful construction of a GRIB2 message buffer. It mirrors the
// state-machine shape and synchronous, caller-owned-buffer style the
// teacher package used for its GRIB1 encoder, generalized to GRIB2's
// nine sections and its template-driven bodies.
package assemble

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"

	"github.com/wxgrid/grib2/bitio"
	"github.com/wxgrid/grib2/griberr"
	"github.com/wxgrid/grib2/gribmsg"
	"github.com/wxgrid/grib2/packing"
	"github.com/wxgrid/grib2/rastercodec"
	"github.com/wxgrid/grib2/template"
)

// state is the section-last-written state named in spec.md 4.8.
type state int

const (
	stateNone state = iota
	stateS0S1
	stateS2
	stateS3
	stateS7
	stateComplete
)

// Builder grows a GRIB2 message buffer one section at a time. The zero
// value is not ready to use; call NewBuilder.
type Builder struct {
	reg   *template.Registry
	state state

	buf []byte

	lastGrid            gribmsg.GridDefinition
	haveGrid            bool
	lastBitmapIndicator gribmsg.BitmapIndicator
	haveBitmap          bool
	fieldCount          int
}

// NewBuilder constructs a Builder in the None state.
func NewBuilder() (*Builder, error) {
	reg, err := template.Default()
	if err != nil {
		return nil, err
	}
	return &Builder{reg: reg, state: stateNone}, nil
}

func writeSection(buf []byte, secNum int, body []byte) []byte {
	header := make([]byte, 5)
	binary.BigEndian.PutUint32(header[0:4], uint32(len(body)+5))
	header[4] = byte(secNum)
	buf = append(buf, header...)
	return append(buf, body...)
}

// Create writes Section 0 (with a length placeholder) and Section 1,
// moving the builder from None to S0/S1 (spec.md 4.8).
func (b *Builder) Create(discipline int, idr gribmsg.IdentificationRecord) error {
	if b.state != stateNone {
		return errors.Wrapf(griberr.ErrBadPredecessorSection, "create called in state %d", b.state)
	}
	b.buf = make([]byte, 16)
	copy(b.buf[0:4], gribmsg.Magic[:])
	b.buf[6] = byte(discipline)
	b.buf[7] = gribmsg.Edition
	// octets 9-16 (total length) are finalized by Finalize.

	body := encodeIdentification(idr)
	b.buf = writeSection(b.buf, int(gribmsg.SectionIdentification), body)
	b.state = stateS0S1
	return nil
}

func encodeIdentification(idr gribmsg.IdentificationRecord) []byte {
	body := make([]byte, 13)
	binary.BigEndian.PutUint16(body[0:2], idr.OriginatingCentre)
	binary.BigEndian.PutUint16(body[2:4], idr.OriginatingSubCentre)
	body[4] = idr.MasterTableVersion
	body[5] = idr.LocalTableVersion
	body[6] = idr.RefTimeSignificance
	t := idr.ReferenceTime.UTC()
	binary.BigEndian.PutUint16(body[7:9], uint16(t.Year()))
	body[9] = byte(t.Month())
	body[10] = byte(t.Day())
	body[11] = byte(t.Hour())
	body[12] = byte(t.Minute())
	return body
}

func decodeIdentification(body []byte, t time.Time) gribmsg.IdentificationRecord {
	return gribmsg.IdentificationRecord{
		OriginatingCentre:    binary.BigEndian.Uint16(body[0:2]),
		OriginatingSubCentre: binary.BigEndian.Uint16(body[2:4]),
		MasterTableVersion:   body[4],
		LocalTableVersion:    body[5],
		RefTimeSignificance:  body[6],
		ReferenceTime:        t,
	}
}

// AddLocalUse writes Section 2 verbatim, moving S0/S1 to S2.
func (b *Builder) AddLocalUse(data []byte) error {
	if b.state != stateS0S1 {
		return errors.Wrapf(griberr.ErrBadPredecessorSection, "add_local_use called in state %d", b.state)
	}
	b.buf = writeSection(b.buf, int(gribmsg.SectionLocalUse), data)
	b.state = stateS2
	return nil
}

// AddGrid encodes and writes Section 3, moving S0/S1 or S2 to S3.
func (b *Builder) AddGrid(grid gribmsg.GridDefinition) error {
	if b.state != stateS0S1 && b.state != stateS2 {
		return errors.Wrapf(griberr.ErrBadPredecessorSection, "add_grid called in state %d", b.state)
	}
	spec, err := b.reg.Lookup(template.KindGDT, grid.TemplateNumber)
	if err != nil {
		return err
	}
	fields, err := spec.Extend(grid.Values)
	if err != nil {
		return err
	}
	tmplBody, err := template.Encode(fields, grid.Values)
	if err != nil {
		return err
	}

	body := make([]byte, 9)
	body[0] = grid.Source
	binary.BigEndian.PutUint32(body[1:5], grid.NumDataPoints)
	body[5] = grid.PointCountOctets
	body[6] = grid.PointCountInterpretation
	binary.BigEndian.PutUint16(body[7:9], uint16(grid.TemplateNumber))
	body = append(body, tmplBody...)
	for _, n := range grid.PointsPerRow {
		var octets [4]byte
		binary.BigEndian.PutUint32(octets[:], n)
		body = append(body, octets[:grid.PointCountOctets]...)
	}

	b.buf = writeSection(b.buf, int(gribmsg.SectionGridDefinition), body)
	b.state = stateS3
	b.lastGrid = grid
	b.haveGrid = true
	return nil
}

// FieldInput is the caller-supplied content for one AddField call:
// Sections 4, 5, 6 and 7 together.
type FieldInput struct {
	Product gribmsg.ProductDefinition

	DRTNumber    int
	PackingKind  PackingKind
	RasterKind   rastercodec.Kind
	DecimalScale int
	BinaryScale  int
	NBits        int // 0 selects auto/degenerate per the chosen packer
	DiffOrder    int // complex packing only
	Truncation   packing.Truncation

	Values  []float64 // one per grid point, len == grid.NumDataPoints
	Missing float64

	BitmapIndicator gribmsg.BitmapIndicator
	Bitmap          []byte // required when BitmapIndicator == BitmapSpecified
}

// PackingKind selects which of C4-C7 AddField invokes for a field,
// independent of the numeric DRT number written to the wire. The usual
// pairings are DRT 0 for PackSimpleKind, 2 or 3 for PackComplexKind, 40
// or 41 for PackRasterKind, 50 for PackHarmonicSimpleKind and 51 for
// PackHarmonicComplexKind.
type PackingKind int

const (
	PackSimpleKind PackingKind = iota
	PackComplexKind
	PackRasterKind
	PackHarmonicSimpleKind
	PackHarmonicComplexKind
)

// AddField executes Sections 4, 5, 6 and 7 atomically, moving S3 or S7
// to S7 (spec.md 4.8).
func (b *Builder) AddField(in FieldInput) error {
	if b.state != stateS3 && b.state != stateS7 {
		return errors.Wrapf(griberr.ErrBadPredecessorSection, "add_field called in state %d", b.state)
	}
	if !b.haveGrid {
		return griberr.ErrMissingGridDefinition
	}
	if in.BitmapIndicator == gribmsg.BitmapReusePrior && !b.haveBitmap {
		return griberr.ErrMissingPriorBitmap
	}
	if (in.DRTNumber == 51) && allZeroTruncation(in.Truncation) {
		return griberr.ErrSphericalHarmonicGDTRequired
	}

	values, bitmapBytes := contractByBitmap(in.Values, in.Missing, in.BitmapIndicator, in.Bitmap)

	sec4, err := b.encodeSection4(in.Product)
	if err != nil {
		return err
	}

	sec5, sec7, err := b.encodeSections5And7(in, values)
	if err != nil {
		return err
	}

	sec6 := encodeSection6(in.BitmapIndicator, bitmapBytes)

	b.buf = writeSection(b.buf, int(gribmsg.SectionProductDef), sec4)
	b.buf = writeSection(b.buf, int(gribmsg.SectionDataRep), sec5)
	b.buf = writeSection(b.buf, int(gribmsg.SectionBitmap), sec6)
	b.buf = writeSection(b.buf, int(gribmsg.SectionData), sec7)

	if in.BitmapIndicator == gribmsg.BitmapSpecified {
		b.haveBitmap = true
		b.lastBitmapIndicator = in.BitmapIndicator
	}
	b.state = stateS7
	b.fieldCount++
	return nil
}

func allZeroTruncation(t packing.Truncation) bool { return t.J == 0 && t.K == 0 && t.M == 0 }

// contractByBitmap drops grid points whose bitmap bit is clear when the
// indicator calls for a bitmap, per spec.md 4.8's "data field is
// contracted" rule.
func contractByBitmap(values []float64, missing float64, indicator gribmsg.BitmapIndicator, bitmap []byte) (contracted []float64, bitmapOut []byte) {
	if indicator == gribmsg.BitmapNone {
		return values, nil
	}
	if indicator != gribmsg.BitmapSpecified {
		// BitmapReusePrior (254) or a predetermined bitmap (1-253):
		// the prior bitmap applies; this builder doesn't track bit
		// membership for a reused bitmap, so it packs every value.
		return values, nil
	}
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if bitAt(bitmap, i) {
			out = append(out, v)
		}
	}
	return out, bitmap
}

func bitAt(bitmap []byte, i int) bool {
	byteIdx, bitIdx := i/8, 7-(i%8)
	if byteIdx >= len(bitmap) {
		return false
	}
	return (bitmap[byteIdx]>>uint(bitIdx))&1 != 0
}

func encodeSection6(indicator gribmsg.BitmapIndicator, bitmap []byte) []byte {
	body := make([]byte, 1, 1+len(bitmap))
	body[0] = byte(indicator)
	if indicator == gribmsg.BitmapSpecified {
		body = append(body, bitmap...)
	}
	return body
}

func (b *Builder) encodeSection4(pd gribmsg.ProductDefinition) ([]byte, error) {
	spec, err := b.reg.Lookup(template.KindPDT, pd.TemplateNumber)
	if err != nil {
		return nil, err
	}
	fields, err := spec.Extend(pd.Values)
	if err != nil {
		return nil, err
	}
	tmplBody, err := template.Encode(fields, pd.Values)
	if err != nil {
		return nil, err
	}

	body := make([]byte, 4)
	binary.BigEndian.PutUint16(body[0:2], uint16(len(pd.VerticalCoordinates)))
	binary.BigEndian.PutUint16(body[2:4], uint16(pd.TemplateNumber))
	body = append(body, tmplBody...)
	for _, v := range pd.VerticalCoordinates {
		var octets [4]byte
		binary.BigEndian.PutUint32(octets[:], bitio.FloatToU32(float64(v)))
		body = append(body, octets[:]...)
	}
	return body, nil
}

// encodeSections5And7 dispatches to the right packer for in.PackingKind,
// writes the back-filled DRT values via the template registry, and
// returns Section 5's and Section 7's bodies.
func (b *Builder) encodeSections5And7(in FieldInput, values []float64) (sec5, sec7 []byte, err error) {
	var drtValues []int64
	switch in.PackingKind {
	case PackSimpleKind:
		enc, perr := packing.PackSimple(values, in.DecimalScale, in.BinaryScale, in.NBits)
		if perr != nil {
			return nil, nil, errors.Wrap(griberr.ErrPackingFailed, perr.Error())
		}
		drtValues = []int64{int64(bitio.FloatToU32(enc.Reference)), int64(enc.BinaryScale), int64(enc.DecimalScale), int64(enc.NBits), 0}
		sec7 = enc.Data

	case PackComplexKind:
		enc, perr := packing.PackComplex(values, in.DecimalScale, in.BinaryScale, in.DiffOrder)
		if perr != nil {
			return nil, nil, errors.Wrap(griberr.ErrPackingFailed, perr.Error())
		}
		drtValues = complexDRTValues(enc)
		if in.DiffOrder > 0 {
			drtValues = append(drtValues, int64(enc.SpatialDiffOrder), int64(len(enc.FirstValues)*8))
		}
		sec7 = enc.SerializeStreams()

	case PackRasterKind:
		grid := b.lastGrid
		ni, nj := gridShape(grid)
		enc, perr := packing.PackRaster(values, in.DecimalScale, in.BinaryScale, ni, nj, gribmsg.ScanMode(0), in.RasterKind)
		if perr != nil {
			return nil, nil, errors.Wrap(griberr.ErrPackingFailed, perr.Error())
		}
		drtValues = []int64{int64(bitio.FloatToU32(enc.Reference)), int64(enc.BinaryScale), int64(enc.DecimalScale), int64(enc.NBits), 0}
		if in.RasterKind == rastercodec.Jpeg2000 {
			drtValues = append(drtValues, 0, 0)
		}
		sec7 = enc.Data

	case PackHarmonicSimpleKind:
		enc, perr := packing.PackHarmonicSimple(values, in.DecimalScale, in.BinaryScale, in.NBits)
		if perr != nil {
			return nil, nil, errors.Wrap(griberr.ErrPackingFailed, perr.Error())
		}
		drtValues = []int64{int64(enc.ZeroZero), int64(enc.Simple.BinaryScale), int64(enc.Simple.DecimalScale), int64(enc.Simple.NBits)}
		sec7 = enc.Simple.Data

	case PackHarmonicComplexKind:
		enc, perr := packing.PackHarmonicComplex(values, in.DecimalScale, in.BinaryScale, in.DiffOrder, in.Truncation)
		if perr != nil {
			return nil, nil, errors.Wrap(griberr.ErrPackingFailed, perr.Error())
		}
		drtValues = complexDRTValues(enc.ComplexEnc)
		drtValues[8] = int64(enc.ZeroZero) // the (0,0) coefficient rides in the unused secondary-missing slot
		sec7 = enc.ComplexEnc.SerializeStreams()

	default:
		return nil, nil, errors.Errorf("assemble: unknown packing kind %d", in.PackingKind)
	}

	spec, err := b.reg.Lookup(template.KindDRT, in.DRTNumber)
	if err != nil {
		return nil, nil, err
	}
	fields, err := spec.Extend(drtValues)
	if err != nil {
		return nil, nil, err
	}
	if len(fields) != len(drtValues) {
		// The static prefix didn't need extending but drtValues carries
		// extra back-filled entries (e.g. spatial-diff order); pad the
		// field list with unsigned octet-wide entries to match.
		for len(fields) < len(drtValues) {
			fields = append(fields, template.Field{WidthOctets: 1, Sign: bitio.Unsigned})
		}
	}
	tmplBody, err := template.Encode(fields, drtValues)
	if err != nil {
		return nil, nil, err
	}

	body := make([]byte, 6)
	binary.BigEndian.PutUint32(body[0:4], uint32(len(values)))
	binary.BigEndian.PutUint16(body[4:6], uint16(in.DRTNumber))
	body = append(body, tmplBody...)
	return body, sec7, nil
}

func complexDRTValues(enc packing.ComplexEncoded) []int64 {
	return []int64{
		int64(bitio.FloatToU32(enc.Reference)),
		int64(enc.BinaryScale),
		int64(enc.DecimalScale),
		0, 0, 1, 0,
		enc.OverallMinimum, 0,
		int64(enc.NumGroups),
		int64(enc.GroupRefWidth), int64(enc.GroupWidthWidth),
		0, 0, 0,
		int64(enc.GroupLengthWidth),
	}
}

func gridShape(grid gribmsg.GridDefinition) (ni, nj int) {
	// GDT 3.0's abstracted layout (template/tables/gdt.toml) carries Ni
	// at values[4] and Nj at values[7]; other grid templates are out of
	// scope for raster shaping and fall back to a 1-row raster, matching
	// the bitmap-contracted convention.
	if grid.TemplateNumber == 0 && len(grid.Values) > 7 {
		return int(grid.Values[4]), int(grid.Values[7])
	}
	return int(grid.NumDataPoints), 1
}

// Finalize appends the terminator and rewrites the total-length field,
// moving S7 to Complete.
func (b *Builder) Finalize() ([]byte, error) {
	if b.state != stateS7 {
		return nil, errors.Wrapf(griberr.ErrBadPredecessorSection, "finalize called in state %d", b.state)
	}
	b.buf = append(b.buf, gribmsg.Terminator[:]...)
	binary.BigEndian.PutUint64(b.buf[8:16], uint64(len(b.buf)))
	b.state = stateComplete
	return b.buf, nil
}

// FieldCount reports how many AddField calls have succeeded so far.
func (b *Builder) FieldCount() int { return b.fieldCount }
