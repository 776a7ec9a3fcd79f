package observability

import (
	"bytes"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/facultyscope/internal/model"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(model.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info().Msg("hidden")
	WithCollege(logger, "ciram").Warn().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"college":"ciram"`)
	assert.Contains(t, out, `"message":"shown"`)
}

func TestWithFaculty(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(model.LoggingConfig{Level: "info", Format: "json"}, &buf)

	WithFaculty(logger, model.FacultyRecord{PersonID: "700001", Name: "张三"}).Info().Msg("x")
	assert.Contains(t, buf.String(), `"person_id":"700001"`)
	assert.Contains(t, buf.String(), `"name":"张三"`)
}

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics("test")

	m.RecordFetch("ciram.fudan.edu.cn", "ok")
	m.RecordFetch("ciram.fudan.edu.cn", "ok")
	m.RecordRetry("ciram.fudan.edu.cn")
	m.RecordCollected("ciram", 12)
	m.RecordCollegeFailed()
	m.RecordFold(3, 1)
	m.RecordSearch("error")
	m.RecordScored(true)
	m.RecordScored(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PagesFetched.WithLabelValues("ciram.fudan.edu.cn", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchRetries.WithLabelValues("ciram.fudan.edu.cn")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.RecordsCollected.WithLabelValues("ciram")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CollegesFailed))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RecordsMerged))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NamesakesAppended))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LibrarySearches.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocumentsScored))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsAccepted))
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	a := NewMetrics("test")
	b := NewMetrics("test")

	a.RecordCollegeFailed()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.CollegesFailed))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CollegesFailed))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordFetch("h", "ok")
		m.RecordRetry("h")
		m.RecordCollected("c", 1)
		m.RecordCollegeFailed()
		m.RecordFold(1, 1)
		m.RecordSearch("ok")
		m.RecordScored(true)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("facultyscope")
	m.RecordScored(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "facultyscope_library_documents_accepted_total 1")
}
