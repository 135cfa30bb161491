// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bureau-foundation/gpusampler/lib/smi"
)

func testBatch(t *testing.T, capture string) smi.Batch {
	t.Helper()
	catalog, err := smi.NewCatalog("index", "utilization.gpu", "power.draw", "pstate")
	if err != nil {
		t.Fatal(err)
	}
	batch, err := smi.Parse(catalog, []byte("index, utilization.gpu [%], power.draw [W], pstate\n"+capture))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return batch
}

func TestExporterPublishesNumericFields(t *testing.T) {
	exporter := New("gpu_sampler")
	batch := testBatch(t, "0, 45 %, 120.5 W, P0\n1, 10 %, 30 W, P8\n")
	exporter.CycleCompleted(1, 5, batch, 250*time.Millisecond)

	if got := testutil.ToFloat64(exporter.values.WithLabelValues("0", "power.draw")); got != 120.5 {
		t.Errorf("power.draw{entity=0} = %v, want 120.5", got)
	}
	if got := testutil.ToFloat64(exporter.values.WithLabelValues("1", "utilization.gpu")); got != 10 {
		t.Errorf("utilization.gpu{entity=1} = %v, want 10", got)
	}
	// Two entities, two numeric metrics each; index and pstate are text.
	if got := testutil.CollectAndCount(exporter.values); got != 4 {
		t.Errorf("value series = %d, want 4", got)
	}
	if got := testutil.ToFloat64(exporter.lastStamp); got != 5 {
		t.Errorf("last stamp = %v, want 5", got)
	}
	if got := testutil.ToFloat64(exporter.entities); got != 2 {
		t.Errorf("entities = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(exporter.work); got != 1 {
		t.Errorf("work histogram samples = %d, want 1", got)
	}
}

func TestExporterDropsUnavailableSeries(t *testing.T) {
	exporter := New("gpu_sampler")
	exporter.CycleCompleted(1, 0, testBatch(t, "0, 45 %, 120.5 W, P0\n"), 0)
	exporter.CycleCompleted(2, 5, testBatch(t, "0, 45 %, N/A, P0\n"), 0)

	if got := testutil.CollectAndCount(exporter.values); got != 1 {
		t.Fatalf("value series = %d, want only utilization left", got)
	}
	if got := testutil.ToFloat64(exporter.cycles); got != 2 {
		t.Errorf("cycles = %v, want 2", got)
	}
}

func TestExporterCountsFailuresAndOverruns(t *testing.T) {
	exporter := New("gpu_sampler")
	exporter.CycleFailed(1, &smi.ExternalToolError{ExitCode: 1})
	exporter.Overrun(2, 1500*time.Millisecond)
	exporter.Overrun(3, 500*time.Millisecond)

	if got := testutil.ToFloat64(exporter.failures); got != 1 {
		t.Errorf("failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.overruns); got != 2 {
		t.Errorf("overruns = %v, want 2", got)
	}
	if got := testutil.ToFloat64(exporter.overrunSeconds); got != 2 {
		t.Errorf("overrun seconds = %v, want 2", got)
	}
}

func TestServerRoutes(t *testing.T) {
	exporter := New("gpu_sampler")
	exporter.CycleCompleted(1, 0, testBatch(t, "0, 45 %, 120.5 W, P0\n"), 0)

	server, err := Listen("127.0.0.1:0", exporter, func() ([]byte, error) {
		return []byte(`{"cycles":1}`), nil
	}, nil)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer server.Shutdown(context.Background())

	get := func(path string) (int, string) {
		t.Helper()
		response, err := http.Get("http://" + server.Addr() + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer response.Body.Close()
		body, _ := io.ReadAll(response.Body)
		return response.StatusCode, string(body)
	}

	if code, body := get("/healthz"); code != http.StatusOK || body != "ok" {
		t.Errorf("/healthz = %d %q", code, body)
	}
	code, body := get("/metrics")
	if code != http.StatusOK {
		t.Fatalf("/metrics status = %d", code)
	}
	if !strings.Contains(body, `gpu_sampler_metric_value{entity="0",metric="power.draw"} 120.5`) {
		t.Errorf("/metrics missing power.draw sample:\n%s", body)
	}
	if code, body := get("/status"); code != http.StatusOK || body != `{"cycles":1}` {
		t.Errorf("/status = %d %q", code, body)
	}
	if code, _ := get("/nope"); code != http.StatusNotFound {
		t.Errorf("/nope = %d, want 404", code)
	}
}

func TestListenRejectsBadAddress(t *testing.T) {
	if _, err := Listen("not-an-address", New("x"), nil, nil); err == nil {
		t.Fatal("Listen accepted an invalid address")
	}
}
