// Package gribmsg holds the domain types shared by the assemble, extract,
// packing and index packages: the decoded view of a GRIB2 message and its
// constituent sections. It has no dependency on any of those packages so it
// can sit at the bottom of the import graph.
package gribmsg

import "time"

// SectionNumber identifies one of the nine GRIB2 sections.
type SectionNumber int

const (
	SectionIndicator      SectionNumber = 0
	SectionIdentification SectionNumber = 1
	SectionLocalUse       SectionNumber = 2
	SectionGridDefinition SectionNumber = 3
	SectionProductDef     SectionNumber = 4
	SectionDataRep        SectionNumber = 5
	SectionBitmap         SectionNumber = 6
	SectionData           SectionNumber = 7
	SectionEnd            SectionNumber = 8
)

// Edition is the only GRIB edition this module understands. GRIB edition 1
// compatibility is an explicit non-goal.
const Edition = 2

// Magic and Terminator are the fixed byte sequences that open and close
// every GRIB2 message.
var (
	Magic      = [4]byte{'G', 'R', 'I', 'B'}
	Terminator = [4]byte{'7', '7', '7', '7'}
)

// IdentificationRecord is the decoded view of Section 1.
type IdentificationRecord struct {
	OriginatingCentre    uint16
	OriginatingSubCentre uint16
	MasterTableVersion   uint8
	LocalTableVersion    uint8
	// RefTimeSignificance is Table 1.2: 0=analysis,1=start of forecast,
	// 2=verifying time of forecast,3=observation time.
	RefTimeSignificance uint8
	ReferenceTime       time.Time
	ProductionStatus    uint8
	ProcessedDataType   uint8
}

// GridDefinition is the decoded view of Section 3.
type GridDefinition struct {
	Source                   uint8
	NumDataPoints            uint32
	PointCountOctets         uint8
	PointCountInterpretation uint8
	TemplateNumber           int
	Values                   []int64
	// PointsPerRow holds the optional list of numbers of points in each row,
	// present for quasi-regular grids when PointCountOctets != 0.
	PointsPerRow []uint32
}

// ScanMode decodes the Section 3 scanning-mode flag octet (GRIB2 Table 3.4).
type ScanMode uint8

const (
	scanNegativeI       ScanMode = 1 << 7
	scanPositiveJ       ScanMode = 1 << 6
	scanAdjacentIConsec ScanMode = 1 << 5
	scanAlternatingRows ScanMode = 1 << 4
)

func (m ScanMode) PositiveI() bool              { return m&scanNegativeI == 0 }
func (m ScanMode) PositiveJ() bool              { return m&scanPositiveJ != 0 }
func (m ScanMode) AdjacentIConsecutive() bool    { return m&scanAdjacentIConsec == 0 }
func (m ScanMode) AlternatingRows() bool         { return m&scanAlternatingRows != 0 }

// GridShape returns the (width, height) a raster packer should use for a
// grid with the given logical Ni x Nj shape, honoring the "alternating
// rows" scan flag per spec.md 4.6 ("If the scan-mode bit 'alternating
// rows' is set, swap width and height before rasterization").
func (m ScanMode) GridShape(ni, nj int) (width, height int) {
	if m.AlternatingRows() {
		return nj, ni
	}
	return ni, nj
}

// VerticalCoordinate is one entry of Section 4's optional vertical
// coordinate list, stored as IEEE-32 floats per spec.md 4.8.
type VerticalCoordinate float32

// ProductDefinition is the decoded view of Section 4.
type ProductDefinition struct {
	TemplateNumber      int
	Values              []int64
	VerticalCoordinates []VerticalCoordinate
}

// BitmapIndicator is Section 6 octet 6 (Table 6.0).
type BitmapIndicator uint8

const (
	// BitmapSpecified means the bitmap bits follow in this section.
	BitmapSpecified BitmapIndicator = 0
	// Values 1-253 select a predetermined (centre-defined) bitmap; no
	// constant is declared for them.
	// BitmapReusePrior means the most recently defined bitmap in the
	// message applies again, without being repeated.
	BitmapReusePrior BitmapIndicator = 254
	// BitmapNone means no bitmap applies; every grid point has data.
	BitmapNone BitmapIndicator = 255
)

// DataRepresentation is the decoded view of Section 5.
type DataRepresentation struct {
	NumDataPoints  uint32
	TemplateNumber int
	Values         []int64
}

// GribField is the fully decoded, owned view of one field (one Section
// 4/5/6/7 group) within a message. Callers MUST call Release when done;
// Release exists mainly to document ownership and to give a hook for
// pooled-buffer reuse in the future, per spec.md 9's "owned return values
// with explicit release" re-architecture.
type GribField struct {
	Discipline     int
	Identification IdentificationRecord
	Grid           GridDefinition
	Product        ProductDefinition
	DataRep        DataRepresentation

	BitmapIndicator BitmapIndicator
	Bitmap          []byte // MSB-first, one bit per grid point; nil if BitmapNone

	// Values holds one entry per grid point (len == Grid.NumDataPoints),
	// expanded from the packed payload using the bitmap: points with a
	// clear bitmap bit hold Missing.
	Values  []float64
	Missing float64

	ScanMode ScanMode

	released bool
}

// Release marks the field as no longer needed by the caller. It is
// idempotent; calling it more than once is not an error.
func (f *GribField) Release() {
	if f == nil || f.released {
		return
	}
	f.Values = nil
	f.Bitmap = nil
	f.released = true
}

// Released reports whether Release has been called, for tests and
// defensive assertions in callers that pool GribFields.
func (f *GribField) Released() bool { return f.released }
