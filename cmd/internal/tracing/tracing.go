// Package tracing sets up OpenTelemetry for the CLIs.
//
// The exporter is selected with OTEL_EXPORTER:
//   - "none" (default): spans are not recorded
//   - "stdout": spans are pretty-printed to the given writer when they end
package tracing

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Provider wraps the tracer provider installed as the global one.
type Provider struct {
	trace.TracerProvider
	sdk *sdktrace.TracerProvider
}

// Init installs a global tracer provider for the named exporter.
func Init(exporter string, w io.Writer) (*Provider, error) {
	exp, err := newExporter(exporter, w)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		p := &Provider{TracerProvider: noop.NewTracerProvider()}
		otel.SetTracerProvider(p.TracerProvider)
		return p, nil
	}

	// synchronous export so spans survive an os.Exit right after an operation
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exp)))
	otel.SetTracerProvider(tp)
	return &Provider{TracerProvider: tp, sdk: tp}, nil
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}

func newExporter(name string, w io.Writer) (sdktrace.SpanExporter, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	default:
		return nil, errors.Newf("unsupported OTEL_EXPORTER: %q (supported: none, stdout)", name)
	}
}
