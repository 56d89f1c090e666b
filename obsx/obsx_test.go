package obsx_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.eggybyte.com/logdecor/instrumentx"
	"go.eggybyte.com/logdecor/obsx"
	"go.eggybyte.com/logdecor/provisionx"
)

var _ instrumentx.Observer = (*obsx.CallRecorder)(nil)

type Juicer struct {
	provisionx.Host
}

func (j *Juicer) press(fruit string) string {
	time.Sleep(2 * time.Millisecond)
	return fruit + " juice"
}

func scrape(t *testing.T, p *obsx.Provider) string {
	t.Helper()
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		opts    obsx.Options
		wantErr bool
	}{
		{"valid", obsx.Options{ServiceName: "fruitdemo", ServiceVersion: "1.0.0"}, false},
		{"missing service name", obsx.Options{ServiceVersion: "1.0.0"}, true},
		{"resource attributes", obsx.Options{ServiceName: "fruitdemo", ResourceAttrs: map[string]string{"env": "test"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := obsx.NewProvider(context.Background(), tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			defer p.Shutdown(context.Background())
			if p.MeterProvider() == nil {
				t.Error("MeterProvider() is nil")
			}
			if p.Meter("x") == nil {
				t.Error("Meter() is nil")
			}
		})
	}
}

func TestProvider_CallRecorderShared(t *testing.T) {
	p, err := obsx.NewProvider(context.Background(), obsx.Options{ServiceName: "fruitdemo"})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Shutdown(context.Background())

	a, err := p.CallRecorder()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := p.CallRecorder()
	if a != b {
		t.Error("CallRecorder() should return the same recorder")
	}
}

func TestCallRecorder_WrappedCallsReachScrape(t *testing.T) {
	ctx := context.Background()
	p, err := obsx.NewProvider(ctx, obsx.Options{ServiceName: "fruitdemo"})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Shutdown(ctx)
	if err := p.EnableRuntimeMetrics(); err != nil {
		t.Fatal(err)
	}
	rec, err := p.CallRecorder()
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	class := provisionx.Define[Juicer](provisionx.Config{
		Transports: []io.Writer{&out},
		NoColor:    true,
	})
	j := class.New()
	press := instrumentx.Wrap(j, "press", j.press, instrumentx.WithObserver(rec))

	if got := press("apple"); got != "apple juice" {
		t.Fatalf("press() = %q", got)
	}
	press("pear")

	if !strings.Contains(out.String(), `"message":"press()"`) {
		t.Errorf("log output missing call record: %s", out.String())
	}

	body := scrape(t, p)
	for _, want := range []string{
		obsx.CallDurationMetric,
		`context="Juicer"`,
		`method="press"`,
		"process_runtime_go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %s", want)
		}
	}
}
