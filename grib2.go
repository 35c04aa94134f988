// Package grib2 is the narrow procedural API surface named in spec.md
// section 6, in idiomatic Go form: a Buffer that wraps the assembler
// (C8), an Extract function that wraps the parser (C9), and an Index
// type that wraps the indexer/cache/search trio (C10-C12).
package grib2

import (
	"github.com/wxgrid/grib2/assemble"
	"github.com/wxgrid/grib2/extract"
	"github.com/wxgrid/grib2/gribio"
	"github.com/wxgrid/grib2/griberr"
	"github.com/wxgrid/grib2/gribmsg"
	"github.com/wxgrid/grib2/index"
)

// Buffer is a GRIB2 message under construction. The zero value is not
// ready to use; call Create.
type Buffer struct {
	b *assemble.Builder
}

// Create starts a new message buffer (grib_create): Section 0 plus
// Section 1 from idr.
func Create(discipline int, idr gribmsg.IdentificationRecord) (*Buffer, error) {
	b, err := assemble.NewBuilder()
	if err != nil {
		return nil, err
	}
	if err := b.Create(discipline, idr); err != nil {
		return nil, err
	}
	return &Buffer{b: b}, nil
}

// AddLocalUse appends Section 2 verbatim (grib_add_local_use).
func (buf *Buffer) AddLocalUse(data []byte) error {
	if buf == nil || buf.b == nil {
		return griberr.ErrNotInitialized
	}
	return buf.b.AddLocalUse(data)
}

// AddGrid appends Section 3 (grib_add_grid).
func (buf *Buffer) AddGrid(grid gribmsg.GridDefinition) error {
	if buf == nil || buf.b == nil {
		return griberr.ErrNotInitialized
	}
	return buf.b.AddGrid(grid)
}

// AddField appends Sections 4-7 for one field (grib_add_field).
func (buf *Buffer) AddField(in assemble.FieldInput) error {
	if buf == nil || buf.b == nil {
		return griberr.ErrNotInitialized
	}
	return buf.b.AddField(in)
}

// FieldCount reports how many fields have been added so far.
func (buf *Buffer) FieldCount() int {
	if buf == nil || buf.b == nil {
		return 0
	}
	return buf.b.FieldCount()
}

// Finalize closes the message and returns its wire bytes (grib_finalize).
func (buf *Buffer) Finalize() ([]byte, error) {
	if buf == nil || buf.b == nil {
		return nil, griberr.ErrNotInitialized
	}
	return buf.b.Finalize()
}

// Extract runs the field extractor (grib_extract) over an assembled
// message buffer.
func Extract(msg []byte, discipline int, q extract.Query) ([]*gribmsg.GribField, error) {
	return extract.ExtractFields(msg, discipline, q)
}

// Index wraps the index cache (C11) with the materialization
// collaborators (C10 scanning, sibling-file reloading) spec.md 4.11
// leaves to the caller. The zero value is not ready to use; call
// NewIndex.
type Index struct {
	cache *index.IndexCache
}

// NewIndex returns an empty index, analogous to the process-wide cache
// named in spec.md 4.11 but explicitly owned by the caller per spec.md
// 9's re-architecture.
func NewIndex() *Index {
	return &Index{cache: index.NewIndexCache()}
}

// Get returns the cached index buffer for handle, scanning source on
// first access (grib_index_get).
func (x *Index) Get(handle int, source gribio.SeekableReader, sourceName string) (*index.IndexBuffer, error) {
	buf, err := x.cache.Get(handle, func() ([]index.Record, error) {
		return index.Scan(source, sourceName)
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Regenerate drops and rescans the entry for handle (grib_index_regenerate).
func (x *Index) Regenerate(handle int, source gribio.SeekableReader, sourceName string) (*index.IndexBuffer, error) {
	return x.cache.Regenerate(handle, func() ([]index.Record, error) {
		return index.Scan(source, sourceName)
	})
}

// ReloadFrom drops the entry for handle and replaces it with records
// read from an on-disk index file (grib_index_reload).
func (x *Index) ReloadFrom(handle int, sourceName string, records []index.Record) (*index.IndexBuffer, error) {
	return x.cache.ReloadFrom(handle, sourceName, records)
}

// Finalize releases every cached entry (grib_finalize_all).
func (x *Index) Finalize() {
	x.cache.Finalize()
}

// Search performs the linear scan of C12 against an index buffer
// already obtained from Get/Regenerate/ReloadFrom.
func Search(buf *index.IndexBuffer, q index.Query) (*index.Record, error) {
	return index.Search(buf, q)
}
