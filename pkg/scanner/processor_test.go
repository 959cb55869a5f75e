package scanner_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/astro-tally/internal/testutil"
	"github.com/stackvity/astro-tally/pkg/scanner"
	"github.com/stackvity/astro-tally/pkg/scanner/cache"
)

func newTestClassifier(t *testing.T, opts *scanner.Options) *scanner.FrameClassifier {
	t.Helper()
	return scanner.NewFrameClassifier(opts, testutil.NewTestLogger(t))
}

func lightFields(overrides map[string]string) map[string]string {
	fields := map[string]string{
		"IMAGETYP": "Light Frame",
		"DATE-OBS": "2024-03-11T22:41:05",
		"FILTER":   "Ha",
		"EXPTIME":  "300",
		"GAIN":     "100",
		"XBINNING": "1",
	}
	for k, v := range overrides {
		if v == "" {
			delete(fields, k)
		} else {
			fields[k] = v
		}
	}
	return fields
}

func TestClassifyFITSLightFrame(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFITSFrame(t, dir, "light_001.fits", lightFields(nil))

	c := newTestClassifier(t, &scanner.Options{})
	result, status := c.Classify(context.Background(), path)

	require.Equal(t, scanner.StatusMatched, status)
	rec, ok := result.(scanner.FrameRecord)
	require.True(t, ok)
	assert.Equal(t, path, rec.Path)
	assert.Equal(t, "2024-03-11", rec.Date)
	assert.Equal(t, "4410", rec.FilterID)
	assert.Equal(t, "300.00", rec.ExposureSeconds)
	assert.Equal(t, "1", rec.Binning)
	assert.Equal(t, "100", rec.Gain)
	assert.False(t, rec.FromCache)
}

func TestClassifyXISFLightFrame(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteXISFFrame(t, dir, "light_001.xisf", lightFields(map[string]string{
		"EXPTIME": "120.5",
		"FILTER":  "Red",
	}))

	c := newTestClassifier(t, &scanner.Options{})
	result, status := c.Classify(context.Background(), path)

	require.Equal(t, scanner.StatusMatched, status)
	rec := result.(scanner.FrameRecord)
	assert.Equal(t, "120.50", rec.ExposureSeconds)
	assert.Equal(t, "28943", rec.FilterID, "Red resolves via its first character")
}

func TestClassifyFormatTransparency(t *testing.T) {
	// The same logical header must yield the same record regardless of
	// the on-disk dialect.
	dir := t.TempDir()
	fits := testutil.WriteFITSFrame(t, dir, "frame.fits", lightFields(nil))
	xisf := testutil.WriteXISFFrame(t, dir, "frame.xisf", lightFields(nil))

	c := newTestClassifier(t, &scanner.Options{})
	r1, s1 := c.Classify(context.Background(), fits)
	r2, s2 := c.Classify(context.Background(), xisf)

	require.Equal(t, scanner.StatusMatched, s1)
	require.Equal(t, scanner.StatusMatched, s2)
	assert.Equal(t, r1.(scanner.FrameRecord).Key(), r2.(scanner.FrameRecord).Key())
}

func TestClassifyRejectsNonLight(t *testing.T) {
	dir := t.TempDir()

	for _, frameType := range []string{"Dark Frame", "FLAT", "Bias", "MasterDark"} {
		path := testutil.WriteFITSFrame(t, dir, frameType+".fits", lightFields(map[string]string{
			"IMAGETYP": frameType,
		}))
		c := newTestClassifier(t, &scanner.Options{})
		result, status := c.Classify(context.Background(), path)

		require.Equal(t, scanner.StatusRejected, status, "type %q", frameType)
		rej := result.(scanner.RejectInfo)
		assert.Equal(t, scanner.RejectReasonNotLight, rej.Reason)
	}
}

func TestClassifyLightMarkerIsCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	for _, frameType := range []string{"light", "LIGHT", "Light Frame", "Tricolor Light"} {
		path := testutil.WriteFITSFrame(t, dir, strings.ReplaceAll(frameType, " ", "_")+".fits",
			lightFields(map[string]string{"IMAGETYP": frameType}))
		c := newTestClassifier(t, &scanner.Options{})
		_, status := c.Classify(context.Background(), path)
		assert.Equal(t, scanner.StatusMatched, status, "type %q", frameType)
	}
}

func TestClassifyRejectsWhenTypeMissing(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFITSFrame(t, dir, "untyped.fits", lightFields(map[string]string{
		"IMAGETYP": "",
	}))

	c := newTestClassifier(t, &scanner.Options{})
	result, status := c.Classify(context.Background(), path)

	require.Equal(t, scanner.StatusRejected, status)
	assert.Equal(t, scanner.RejectReasonNoType, result.(scanner.RejectInfo).Reason)
}

func TestClassifyRejectsMissingFile(t *testing.T) {
	c := newTestClassifier(t, &scanner.Options{})
	result, status := c.Classify(context.Background(), "/no/such/frame.fits")

	require.Equal(t, scanner.StatusRejected, status)
	assert.Equal(t, scanner.RejectReasonMissing, result.(scanner.RejectInfo).Reason)
}

func TestClassifyFieldDefaults(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFITSFrame(t, dir, "sparse.fits", map[string]string{
		"IMAGETYP": "Light",
	})

	c := newTestClassifier(t, &scanner.Options{})
	result, status := c.Classify(context.Background(), path)

	require.Equal(t, scanner.StatusMatched, status)
	rec := result.(scanner.FrameRecord)
	assert.Equal(t, "Unknown", rec.Date)
	assert.Equal(t, "Unknown", rec.FilterID)
	// The absent-exposure default is the literal "0", not "0.00".
	assert.Equal(t, "0", rec.ExposureSeconds)
	assert.Equal(t, "1", rec.Binning)
	assert.Equal(t, "0", rec.Gain)
}

func TestClassifyExposureNormalization(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"300", "300.00"},
		{"120.5", "120.50"},
		{"0.001", "0.00"},
		{"garbage", "0"},
	}
	dir := t.TempDir()
	for _, tc := range tests {
		path := testutil.WriteFITSFrame(t, dir, "exp_"+tc.raw+".fits", lightFields(map[string]string{
			"EXPTIME": tc.raw,
		}))
		c := newTestClassifier(t, &scanner.Options{})
		result, status := c.Classify(context.Background(), path)
		require.Equal(t, scanner.StatusMatched, status, "exposure %q", tc.raw)
		assert.Equal(t, tc.want, result.(scanner.FrameRecord).ExposureSeconds, "exposure %q", tc.raw)
	}
}

func TestClassifyGainTruncation(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFITSFrame(t, dir, "gain.fits", lightFields(map[string]string{
		"GAIN": "139.7",
	}))

	c := newTestClassifier(t, &scanner.Options{})
	result, status := c.Classify(context.Background(), path)
	require.Equal(t, scanner.StatusMatched, status)
	assert.Equal(t, "139", result.(scanner.FrameRecord).Gain)
}

func TestClassifyDateKeepsCalendarPart(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFITSFrame(t, dir, "date.fits", lightFields(map[string]string{
		"DATE-OBS": "2023-10-01T03:12:44.501",
	}))

	c := newTestClassifier(t, &scanner.Options{})
	result, status := c.Classify(context.Background(), path)
	require.Equal(t, scanner.StatusMatched, status)
	assert.Equal(t, "2023-10-01", result.(scanner.FrameRecord).Date)
}

func TestClassifyHonorsHeaderWindow(t *testing.T) {
	dir := t.TempDir()
	// The type record sits beyond the configured window, so the header
	// fields are invisible and the frame is rejected.
	content := strings.Repeat(" ", 256) + "IMAGETYP= 'LIGHT'\n"
	testutil.CreateDummyFile(t, dir+"/far.fits", content)

	c := newTestClassifier(t, &scanner.Options{HeaderWindowBytes: 64})
	result, status := c.Classify(context.Background(), dir+"/far.fits")

	require.Equal(t, scanner.StatusRejected, status)
	assert.Equal(t, scanner.RejectReasonNoType, result.(scanner.RejectInfo).Reason)
}

func TestClassifyCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClassifier(t, &scanner.Options{})
	result, status := c.Classify(ctx, "/data/whatever.fits")

	require.Equal(t, scanner.StatusFailed, status)
	_, ok := result.(scanner.ErrorInfo)
	assert.True(t, ok)
}

func TestClassifyCacheHit(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFITSFrame(t, dir, "cached.fits", lightFields(nil))

	cached := cache.Record{
		Date:            "2024-01-01",
		FilterID:        "25576",
		ExposureSeconds: "60.00",
		Binning:         "2",
		Gain:            "56",
		IsLight:         true,
	}
	cm := &testutil.MockCacheManager{}
	cm.On("Check", path, mock.Anything, mock.Anything, mock.Anything).Return(true, cached)

	c := newTestClassifier(t, &scanner.Options{CacheManager: cm})
	result, status := c.Classify(context.Background(), path)

	require.Equal(t, scanner.StatusCached, status)
	rec := result.(scanner.FrameRecord)
	assert.True(t, rec.FromCache)
	assert.Equal(t, "25576", rec.FilterID)
	cm.AssertExpectations(t)
	cm.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestClassifyCacheMissUpdates(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFITSFrame(t, dir, "fresh.fits", lightFields(nil))

	cm := &testutil.MockCacheManager{}
	cm.On("Check", path, mock.Anything, mock.Anything, mock.Anything).Return(false, cache.Record{})
	cm.On("Update", path, mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(rec cache.Record) bool {
		return rec.IsLight && rec.FilterID == "4410"
	})).Return(nil)

	c := newTestClassifier(t, &scanner.Options{CacheManager: cm})
	_, status := c.Classify(context.Background(), path)

	require.Equal(t, scanner.StatusMatched, status)
	cm.AssertExpectations(t)
}

func TestClassifyCachedRejectionStaysRejected(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFITSFrame(t, dir, "dark.fits", lightFields(map[string]string{"IMAGETYP": "Dark"}))

	cm := &testutil.MockCacheManager{}
	cm.On("Check", path, mock.Anything, mock.Anything, mock.Anything).
		Return(true, cache.Record{IsLight: false, RejectReason: string(scanner.RejectReasonNotLight)})

	c := newTestClassifier(t, &scanner.Options{CacheManager: cm})
	result, status := c.Classify(context.Background(), path)

	require.Equal(t, scanner.StatusRejected, status)
	assert.Equal(t, scanner.RejectReasonNotLight, result.(scanner.RejectInfo).Reason)
}

// Classification must finish promptly even when the file is much larger
// than the window.
func TestClassifyLargeFileReadsPrefixOnly(t *testing.T) {
	dir := t.TempDir()
	header := "IMAGETYP= 'LIGHT'\nFILTER  = 'L'\nEXPTIME =                   60\n"
	body := strings.Repeat("\x00", 200000)
	testutil.CreateDummyFile(t, dir+"/big.fits", header+body)

	c := newTestClassifier(t, &scanner.Options{})
	start := time.Now()
	result, status := c.Classify(context.Background(), dir+"/big.fits")
	require.Less(t, time.Since(start), 5*time.Second)

	require.Equal(t, scanner.StatusMatched, status)
	assert.Equal(t, "25576", result.(scanner.FrameRecord).FilterID)
}
