package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"pdfagent/internal/models"
)

func TestRecorderCountsFlights(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	start := time.Now()

	r.FlightStarted(models.FlightReport{})
	r.FlightStarted(models.FlightReport{})
	if got := testutil.ToFloat64(r.inFlight); got != 2 {
		t.Fatalf("expected 2 in flight, got %v", got)
	}

	r.FlightSettled(models.FlightReport{StartedAt: start, SettledAt: start.Add(2 * time.Second)})
	r.FlightSettled(models.FlightReport{
		StartedAt: start, SettledAt: start.Add(time.Second), Dropped: true,
		Failure: &models.Failure{Kind: models.FailureTransport},
	})

	if got := testutil.ToFloat64(r.inFlight); got != 0 {
		t.Fatalf("expected nothing in flight, got %v", got)
	}
	if got := testutil.ToFloat64(r.submissions.WithLabelValues("success", "")); got != 1 {
		t.Fatalf("expected one success, got %v", got)
	}
	if got := testutil.ToFloat64(r.submissions.WithLabelValues("failure", "transport")); got != 1 {
		t.Fatalf("expected one transport failure, got %v", got)
	}
	if got := testutil.ToFloat64(r.dropped); got != 1 {
		t.Fatalf("expected one dropped result, got %v", got)
	}
	if got := testutil.CollectAndCount(r.duration); got != 2 {
		t.Fatalf("expected two duration series, got %d", got)
	}
}

func TestRecorderUploadsAndGauges(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	r.UploadSelected(100)
	r.UploadSelected(50)
	if got := testutil.ToFloat64(r.uploadBytes); got != 150 {
		t.Fatalf("expected 150 bytes, got %v", got)
	}
	if err := r.GaugeFunc("sessions_live", "Mounted sessions.", func() float64 { return 3 }); err != nil {
		t.Fatalf("GaugeFunc error: %v", err)
	}

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"pdfagent_uploads_total 2", "pdfagent_sessions_live 3"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in exposition", want)
		}
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.FlightStarted(models.FlightReport{})
	r.FlightSettled(models.FlightReport{})
	r.UploadSelected(1)
	if err := r.GaugeFunc("x", "y", func() float64 { return 0 }); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
