package template

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupKnownTemplates(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	spec, err := reg.Lookup(KindDRT, 0)
	require.NoError(t, err)
	require.Len(t, spec.Fields, 5)

	spec, err = reg.Lookup(KindGDT, 0)
	require.NoError(t, err)
	require.Len(t, spec.Fields, 14)
}

func TestLookupUnknownTemplateErrors(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	_, err = reg.Lookup(KindDRT, 9999)
	require.Error(t, err)
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	spec, err := reg.Lookup(KindDRT, 0)
	require.NoError(t, err)

	values := []int64{1000, -5, 2, 12, 0}
	buf, err := Encode(spec.Fields, values)
	require.NoError(t, err)
	require.Equal(t, WidthOctets(spec.Fields), len(buf))

	got := Decode(spec.Fields, buf)
	require.Equal(t, values, got)
}

func TestExtensionGroupExpands(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	spec, err := reg.Lookup(KindPDT, 8)
	require.NoError(t, err)
	require.True(t, spec.NeedsExtension)

	prefix := make([]int64, len(spec.Fields))
	prefix[20] = 2 // two time-range specifications

	fields, err := spec.Extend(prefix)
	require.NoError(t, err)
	require.Len(t, fields, len(spec.Fields)+2*5)
}

func TestDescribeParameter(t *testing.T) {
	name, ok := DescribeParameter(0, 0, 0)
	require.True(t, ok)
	require.Equal(t, "Temperature", name)

	_, ok = DescribeParameter(99, 99, 99)
	require.False(t, ok)
}
