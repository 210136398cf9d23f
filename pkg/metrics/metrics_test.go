package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	Initialize()
	m.Run()
}

func TestMetrics_EndToEnd(t *testing.T) {
	assert.NotNil(t, Handler())

	SetGauge("test_gauge", 1.0, "test_service")
	IncrCounter([]string{"test_counter"}, 1.0)
	MeasureSince([]string{"test_measurement"}, time.Now())
	AddSample([]string{"test_sample"}, 5.0)

	ts := httptest.NewServer(Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(string(body)), "test_counter")
}

func TestSetGauge_NoPanicWithoutLabels(t *testing.T) {
	assert.NotPanics(t, func() {
		SetGauge("no_label_gauge", 1.0)
	})
}

func TestInitialize_Idempotent(t *testing.T) {
	h1 := Handler()
	Initialize()
	h2 := Handler()
	assert.Equal(t, reflect.ValueOf(h1).Pointer(), reflect.ValueOf(h2).Pointer())
}
