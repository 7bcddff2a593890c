package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue returns the value of the counter series name{labels}, or -1 when absent.
func counterValue(t *testing.T, r *Recorder, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := r.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, m := range mf.GetMetric() {
			if len(m.GetLabel()) != len(labels) {
				continue
			}
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue series
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return -1
}

func TestRecorder(t *testing.T) {
	r := New()
	r.Batch("ok", 3*time.Second)
	r.Job("greenhouse", "submitted", time.Second)
	r.Job("greenhouse", "submitted", time.Second)
	r.Job("lever", "failed", time.Second)
	r.Navigation("embed")
	r.Prompts(3)
	r.FieldFill("typed")
	r.Imported("greenhouse", 4)
	r.Imported("lever", 0)
	r.HTTPRequest("/autopilot/run", "200")

	assert.Equal(t, 2.0, counterValue(t, r, "applypilot_jobs_total", map[string]string{"ats": "greenhouse", "status": "submitted"}))
	assert.Equal(t, 1.0, counterValue(t, r, "applypilot_jobs_total", map[string]string{"ats": "lever", "status": "failed"}))
	assert.Equal(t, 1.0, counterValue(t, r, "applypilot_batches_total", map[string]string{"result": "ok"}))
	assert.Equal(t, 4.0, counterValue(t, r, "applypilot_imported_jobs_total", map[string]string{"source": "greenhouse"}))
	assert.Equal(t, -1.0, counterValue(t, r, "applypilot_imported_jobs_total", map[string]string{"source": "lever"}))
	assert.Equal(t, 1.0, counterValue(t, r, "applypilot_field_fills_total", map[string]string{"method": "typed"}))
	assert.Equal(t, 1.0, counterValue(t, r, "applypilot_form_navigation_total", map[string]string{"strategy": "embed"}))
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Batch("ok", time.Second)
		r.Job("x", "y", time.Second)
		r.Navigation("none")
		r.Prompts(1)
		r.FieldFill("fill")
		r.Imported("greenhouse", 1)
		r.HTTPRequest("/", "200")
	})
	assert.Nil(t, r.Registry())

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestHandler(t *testing.T) {
	r := New()
	r.Job("greenhouse", "previewed", time.Second)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `applypilot_jobs_total{ats="greenhouse",status="previewed"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
