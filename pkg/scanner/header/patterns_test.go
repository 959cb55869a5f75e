package header

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleXISF = `<?xml version="1.0" encoding="UTF-8"?>
<xisf version="1.0">
<Image geometry="6248:4176:1" sampleFormat="UInt16">
<FITSKeyword name="IMAGETYP" value="Light Frame" comment="Type of exposure"/>
<FITSKeyword name="EXPTIME" value="300" comment="[s] Exposure duration"/>
<FITSKeyword name="DATE-LOC" value="2024-03-11T22:41:05.123" comment="Time of observation (local)"/>
<FITSKeyword name="FILTER" value="Ha" comment="Active filter name"/>
<FITSKeyword name="GAIN" value="100" comment="Sensor gain"/>
<FITSKeyword name="XBINNING" value="1" comment="X axis binning factor"/>
</Image>
</xisf>`

const sampleFITS = `SIMPLE  =                    T / conforms to FITS standard
BITPIX  =                   16
IMAGETYP= 'LIGHT   '           / Type of exposure
EXPTIME =                120.5 / [s] Exposure duration
DATE-OBS= '2023-10-01T03:12:44.501' / UTC start of exposure
FILTER  = 'Red     '           / Active filter name
GAIN    =                  139
XBINNING=                    2
END`

func TestForPath(t *testing.T) {
	assert.Equal(t, FormatXISF, ForPath("/data/m31/light_001.xisf").Format())
	assert.Equal(t, FormatXISF, ForPath("C:\\frames\\LIGHT_001.XISF").Format())
	assert.Equal(t, FormatFITS, ForPath("/data/m31/light_001.fits").Format())
	assert.Equal(t, FormatFITS, ForPath("/data/m31/light_001.fit").Format())
	// Anything that is not .xisf falls back to the FITS dialect.
	assert.Equal(t, FormatFITS, ForPath("/data/m31/notes.txt").Format())
	assert.Equal(t, FormatFITS, ForPath("").Format())
}

func TestExtractXISF(t *testing.T) {
	ps := ForFormat(FormatXISF)

	tests := []struct {
		field Field
		want  string
	}{
		{FieldType, "Light Frame"},
		{FieldExposure, "300"},
		{FieldDate, "2024-03-11T22:41:05.123"},
		{FieldFilter, "Ha"},
		{FieldGain, "100"},
		{FieldBinning, "1"},
	}
	for _, tc := range tests {
		got, ok := ps.Extract(tc.field, sampleXISF)
		require.True(t, ok, "field %s should match", tc.field)
		assert.Equal(t, tc.want, got, "field %s", tc.field)
	}
}

func TestExtractFITS(t *testing.T) {
	ps := ForFormat(FormatFITS)

	tests := []struct {
		field Field
		want  string
	}{
		{FieldType, "LIGHT"},
		{FieldExposure, "120.5"},
		{FieldDate, "2023-10-01T03:12:44.501"},
		{FieldFilter, "Red"},
		{FieldGain, "139"},
		{FieldBinning, "2"},
	}
	for _, tc := range tests {
		got, ok := ps.Extract(tc.field, sampleFITS)
		require.True(t, ok, "field %s should match", tc.field)
		assert.Equal(t, tc.want, got, "field %s", tc.field)
	}
}

func TestExtractKeywordSynonyms(t *testing.T) {
	ps := ForFormat(FormatFITS)

	text := "TYPE    = 'FLAT'\nEXPOSURE=                  1.5\nFILT    = 'L'\nISO     =                  800\nBINNING =                    4\nDATE    = '2022-01-01T00:00:00'"

	got, ok := ps.Extract(FieldType, text)
	require.True(t, ok)
	assert.Equal(t, "FLAT", got)

	got, ok = ps.Extract(FieldExposure, text)
	require.True(t, ok)
	assert.Equal(t, "1.5", got)

	got, ok = ps.Extract(FieldFilter, text)
	require.True(t, ok)
	assert.Equal(t, "L", got)

	got, ok = ps.Extract(FieldGain, text)
	require.True(t, ok)
	assert.Equal(t, "800", got)

	got, ok = ps.Extract(FieldBinning, text)
	require.True(t, ok)
	assert.Equal(t, "4", got)

	got, ok = ps.Extract(FieldDate, text)
	require.True(t, ok)
	assert.Equal(t, "2022-01-01T00:00:00", got)
}

func TestExtractCaseInsensitive(t *testing.T) {
	ps := ForFormat(FormatXISF)
	got, ok := ps.Extract(FieldType, `<fitskeyword name="imagetyp" value="light"/>`)
	require.True(t, ok)
	assert.Equal(t, "light", got)
}

func TestExtractMissingField(t *testing.T) {
	ps := ForFormat(FormatFITS)
	_, ok := ps.Extract(FieldFilter, "SIMPLE  =                    T\nEND")
	assert.False(t, ok)
}

func TestExtractEmptyValue(t *testing.T) {
	ps := ForFormat(FormatFITS)
	got, ok := ps.Extract(FieldFilter, "FILTER  = ''")
	require.True(t, ok)
	assert.Equal(t, "", got)
}

func TestExtractXISFSkipsEmptyValue(t *testing.T) {
	ps := ForFormat(FormatXISF)

	// An empty-valued tag does not count as a match, so a later populated
	// synonym still gets found.
	text := `<FITSKeyword name="FILTER" value="" comment=""/>
<FITSKeyword name="FILT" value="Ha" comment=""/>`
	got, ok := ps.Extract(FieldFilter, text)
	require.True(t, ok)
	assert.Equal(t, "Ha", got)

	// With only empty-valued tags the field is treated as absent.
	_, ok = ps.Extract(FieldFilter, `<FITSKeyword name="FILTER" value=""/>`)
	assert.False(t, ok)
}

func TestExtractFirstMatchWins(t *testing.T) {
	ps := ForFormat(FormatFITS)
	text := "DATE-OBS= '2023-10-01T03:12:44' \nDATE-LOC= '2023-10-01T05:12:44'"
	got, ok := ps.Extract(FieldDate, text)
	require.True(t, ok)
	// Scan order in the text decides, not keyword priority.
	assert.Equal(t, "2023-10-01T03:12:44", got)
}
