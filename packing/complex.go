package packing

import (
	"encoding/binary"
	"math"

	"github.com/wxgrid/grib2/bitio"
)

// ComplexParams are the DRT 5.2/5.3 scalar template fields a
// complex-packed field writes back, mirroring SimpleParams plus the
// group bookkeeping from spec.md 4.5 step 5.
type ComplexParams struct {
	SimpleParams
	SpatialDiffOrder int // 0, 1 or 2; 0 means DRT 5.2 (no differencing)
	FirstValues      []int64
	OverallMinimum   int64

	NumGroups        int
	GroupRefWidth    int
	GroupWidthWidth  int
	GroupLengthWidth int
}

// group is one contiguous run of samples packed at a uniform bit width.
type group struct {
	values []int64
	ref    int64
	width  int
}

// ComplexEncoded is the packed form of a complex-packed field: the
// back-filled template parameters plus three parallel streams (group
// references, group widths, group lengths) and the per-group payload,
// concatenated and octet-padded per spec.md 4.5 step 4.
type ComplexEncoded struct {
	ComplexParams
	GroupRefs    []int64
	GroupWidths  []int
	GroupLengths []int
	Data         []byte
}

// diff computes the spec.md 4.5 step 1 discrete difference series of
// order 1 or 2, returning the differenced series, the preserved leading
// values (order of them), and the series minimum.
func diff(values []float64, order int) (series []int64, first []int64, min int64) {
	rounded := make([]int64, len(values))
	for i, v := range values {
		rounded[i] = int64(math.Round(v))
	}
	if order <= 0 || len(values) == 0 {
		return rounded, nil, minInt64(rounded)
	}
	cur := rounded
	first = make([]int64, 0, order)
	for o := 0; o < order; o++ {
		if len(cur) == 0 {
			break
		}
		first = append(first, cur[0])
		next := make([]int64, 0, len(cur)-1)
		for i := 1; i < len(cur); i++ {
			next = append(next, cur[i]-cur[i-1])
		}
		cur = next
	}
	return cur, first, minInt64(cur)
}

func minInt64(xs []int64) int64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func bitWidth(v int64) int {
	if v <= 0 {
		return 0
	}
	w := 0
	for (int64(1) << uint(w)) <= v {
		w++
	}
	return w
}

// splitGroups greedily partitions series into runs of approximately
// uniform magnitude, grouping consecutive samples whose required bit
// width matches, per spec.md 4.5 step 3. This is a direct, low
// complexity greedy heuristic: extend the current group while the
// incoming sample doesn't need more bits than the group's running
// maximum, and close the group once it does.
func splitGroups(series []int64) []group {
	if len(series) == 0 {
		return nil
	}
	var groups []group
	cur := group{values: []int64{series[0]}}
	curMax := series[0]
	for _, v := range series[1:] {
		candidateMax := curMax
		if v > candidateMax {
			candidateMax = v
		}
		if bitWidth(candidateMax-minInt64(cur.values)) == bitWidth(curMax-minInt64(cur.values)) || len(cur.values) == 0 {
			cur.values = append(cur.values, v)
			curMax = candidateMax
			continue
		}
		groups = append(groups, finalizeGroup(cur))
		cur = group{values: []int64{v}}
		curMax = v
	}
	groups = append(groups, finalizeGroup(cur))
	return groups
}

func finalizeGroup(g group) group {
	g.ref = minInt64(g.values)
	maxDelta := int64(0)
	for _, v := range g.values {
		if d := v - g.ref; d > maxDelta {
			maxDelta = d
		}
	}
	g.width = bitWidth(maxDelta)
	return g
}

// PackComplex implements spec.md 4.5. order selects DRT 5.3's spatial
// differencing (1 or 2); pass 0 for plain DRT 5.2 grouping.
func PackComplex(values []float64, decimalScale, binaryScale, order int) (ComplexEncoded, error) {
	if isConstant(values) {
		ref := 0.0
		if len(values) > 0 {
			ref = values[0]
		}
		return ComplexEncoded{
			ComplexParams: ComplexParams{
				SimpleParams:     SimpleParams{Reference: ref, BinaryScale: binaryScale, DecimalScale: decimalScale, NBits: 0},
				SpatialDiffOrder: order,
			},
		}, nil
	}

	decFactor := math.Pow(10, float64(decimalScale))
	scaled := make([]float64, len(values))
	for i, v := range values {
		scaled[i] = v * decFactor
	}

	series, first, overallMin := diff(scaled, order)
	groups := splitGroups(series)

	refWidth, widthWidth, lengthWidth := 0, 0, 0
	groupRefs := make([]int64, len(groups))
	groupWidths := make([]int, len(groups))
	groupLengths := make([]int, len(groups))
	totalBits := 0
	for i, g := range groups {
		groupRefs[i] = g.ref
		groupWidths[i] = g.width
		groupLengths[i] = len(g.values)
		if w := bitWidth(g.ref - overallMin); w > refWidth {
			refWidth = w
		}
		if w := bitWidth(int64(g.width)); w > widthWidth {
			widthWidth = w
		}
		if w := bitWidth(int64(len(g.values))); w > lengthWidth {
			lengthWidth = w
		}
		totalBits += g.width * len(g.values)
	}

	data := make([]byte, bitio.SizeOctets(totalBits))
	bitOffset := 0
	for _, g := range groups {
		for _, v := range g.values {
			bitio.PutBits(data, bitOffset, g.width, uint64(v-g.ref))
			bitOffset += g.width
		}
	}

	firstInt := make([]int64, len(first))
	copy(firstInt, first)

	return ComplexEncoded{
		ComplexParams: ComplexParams{
			SimpleParams:     SimpleParams{Reference: float64(overallMin), BinaryScale: binaryScale, DecimalScale: decimalScale, NBits: 0},
			SpatialDiffOrder: order,
			FirstValues:      firstInt,
			OverallMinimum:   overallMin,
			NumGroups:        len(groups),
			GroupRefWidth:    refWidth,
			GroupWidthWidth:  widthWidth,
			GroupLengthWidth: lengthWidth,
		},
		GroupRefs:    groupRefs,
		GroupWidths:  groupWidths,
		GroupLengths: groupLengths,
		Data:         data,
	}, nil
}

// UnpackComplex is the inverse of PackComplex.
func UnpackComplex(enc ComplexEncoded, n int) []float64 {
	if enc.NBits == 0 && len(enc.GroupRefs) == 0 {
		out := make([]float64, n)
		for i := range out {
			out[i] = enc.Reference
		}
		return out
	}

	series := make([]int64, 0, n)
	bitOffset := 0
	for i, width := range enc.GroupWidths {
		ref := enc.GroupRefs[i]
		for j := 0; j < enc.GroupLengths[i]; j++ {
			var delta uint64
			if width > 0 {
				delta = bitio.GetBits(enc.Data, bitOffset, width)
			}
			bitOffset += width
			series = append(series, ref+int64(delta))
		}
	}

	restored := undiff(series, enc.FirstValues, enc.SpatialDiffOrder)
	decFactor := math.Pow(10, float64(-enc.DecimalScale))
	out := make([]float64, len(restored))
	for i, v := range restored {
		out[i] = float64(v) * decFactor
	}
	return out
}

// SerializeStreams concatenates the spatial-differencing seed values,
// the three parallel group-metadata streams, and the packed payload
// into one byte slice, matching spec.md 4.5 step 4's wire order: first
// values, group references, group widths, group lengths, then each
// group's values. FirstValues (the order leading samples undiff needs
// to reconstruct the original series) ride as fixed-width 8-octet
// signed integers ahead of the group streams, since their count (the
// differencing order) is always small and known from the DRT.
func (enc ComplexEncoded) SerializeStreams() []byte {
	firstLen := 8 * len(enc.FirstValues)
	refBits := enc.GroupRefWidth * len(enc.GroupRefs)
	widthBits := enc.GroupWidthWidth * len(enc.GroupWidths)
	lengthBits := enc.GroupLengthWidth * len(enc.GroupLengths)

	out := make([]byte, firstLen+bitio.SizeOctets(refBits)+bitio.SizeOctets(widthBits)+bitio.SizeOctets(lengthBits)+len(enc.Data))
	off := 0

	for i, v := range enc.FirstValues {
		binary.BigEndian.PutUint64(out[off+i*8:off+i*8+8], uint64(v))
	}
	off += firstLen

	refBuf := out[off : off+bitio.SizeOctets(refBits)]
	bitOffset := 0
	for _, r := range enc.GroupRefs {
		bitio.PutBits(refBuf, bitOffset, enc.GroupRefWidth, uint64(r-enc.OverallMinimum))
		bitOffset += enc.GroupRefWidth
	}
	off += len(refBuf)

	widthBuf := out[off : off+bitio.SizeOctets(widthBits)]
	bitOffset = 0
	for _, w := range enc.GroupWidths {
		bitio.PutBits(widthBuf, bitOffset, enc.GroupWidthWidth, uint64(w))
		bitOffset += enc.GroupWidthWidth
	}
	off += len(widthBuf)

	lengthBuf := out[off : off+bitio.SizeOctets(lengthBits)]
	bitOffset = 0
	for _, l := range enc.GroupLengths {
		bitio.PutBits(lengthBuf, bitOffset, enc.GroupLengthWidth, uint64(l))
		bitOffset += enc.GroupLengthWidth
	}
	off += len(lengthBuf)

	copy(out[off:], enc.Data)
	return out
}

// DeserializeStreams is the inverse of SerializeStreams, given the
// group-count, bit-width and differencing-order parameters already
// decoded from the template (ComplexParams). payload is the remainder
// of data after the first-values and three metadata streams.
func DeserializeStreams(data []byte, params ComplexParams) (firstValues []int64, groupRefs []int64, groupWidths, groupLengths []int, payload []byte) {
	order := params.SpatialDiffOrder
	firstLen := 8 * order
	firstValues = make([]int64, order)
	for i := 0; i < order; i++ {
		firstValues[i] = int64(binary.BigEndian.Uint64(data[i*8 : i*8+8]))
	}
	data = data[firstLen:]

	n := params.NumGroups
	groupRefs = make([]int64, n)
	groupWidths = make([]int, n)
	groupLengths = make([]int, n)

	refLen := bitio.SizeOctets(params.GroupRefWidth * n)
	widthLen := bitio.SizeOctets(params.GroupWidthWidth * n)
	lengthLen := bitio.SizeOctets(params.GroupLengthWidth * n)

	refBuf := data[:refLen]
	bitOffset := 0
	for i := 0; i < n; i++ {
		groupRefs[i] = params.OverallMinimum + int64(bitio.GetBits(refBuf, bitOffset, params.GroupRefWidth))
		bitOffset += params.GroupRefWidth
	}

	widthBuf := data[refLen : refLen+widthLen]
	bitOffset = 0
	for i := 0; i < n; i++ {
		groupWidths[i] = int(bitio.GetBits(widthBuf, bitOffset, params.GroupWidthWidth))
		bitOffset += params.GroupWidthWidth
	}

	lengthBuf := data[refLen+widthLen : refLen+widthLen+lengthLen]
	bitOffset = 0
	for i := 0; i < n; i++ {
		groupLengths[i] = int(bitio.GetBits(lengthBuf, bitOffset, params.GroupLengthWidth))
		bitOffset += params.GroupLengthWidth
	}

	payloadStart := refLen + widthLen + lengthLen
	payload = data[payloadStart:]
	return firstValues, groupRefs, groupWidths, groupLengths, payload
}

func undiff(series []int64, first []int64, order int) []int64 {
	cur := series
	for o := order; o > 0; o-- {
		seed := first[o-1]
		restored := make([]int64, 0, len(cur)+1)
		restored = append(restored, seed)
		prev := seed
		for _, d := range cur {
			prev += d
			restored = append(restored, prev)
		}
		cur = restored
	}
	return cur
}
