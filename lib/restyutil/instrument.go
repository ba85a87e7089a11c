// Package restyutil instruments resty clients: one span per HTTP
// exchange, debug-level request logs, and optionally a full transcript
// of every exchange written to disk for source-format archaeology.
package restyutil

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

// Output receives one rendered transcript per HTTP exchange.
type Output interface {
	Write(id string, contents string)
}

type instrumentCtx struct {
	output    Output
	idcounter *uint64
}

type exchangeIDKey struct{}

// Instrument attaches tracing middleware to a client. tracer may be
// nil, in which case the spans carry the library name "resty"; output
// may be nil, which disables transcripts.
func Instrument(client *resty.Client, tracer trace.Tracer, output Output) {
	if tracer == nil {
		tracer = otel.Tracer("resty")
	}

	var idcounter uint64
	i := instrumentCtx{output: output, idcounter: &idcounter}
	client.OnBeforeRequest(i.onBeforeRequest(tracer))
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

func (i instrumentCtx) onBeforeRequest(tracer trace.Tracer) resty.RequestMiddleware {
	return func(cli *resty.Client, req *resty.Request) error {
		ctx, _ := tracer.Start(req.Context(), req.Method)

		if slog.Default().Enabled(ctx, slog.LevelDebug) {
			id := strconv.FormatUint(atomic.AddUint64(i.idcounter, 1), 10)
			slog.DebugContext(ctx, "start request",
				"method", req.Method,
				"url", req.URL,
				"exchange_id", id,
			)
			ctx = context.WithValue(ctx, exchangeIDKey{}, id)
		}

		req.SetContext(ctx)
		return nil
	}
}

func (i instrumentCtx) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	// request attributes are set here because RawRequest is still nil
	// in onBeforeRequest
	span.SetName(fmt.Sprintf("http %s", res.Request.Method))
	span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)

	id, ok := ctx.Value(exchangeIDKey{}).(string)
	if !ok {
		return nil
	}
	if i.output != nil {
		i.output.Write(id, formatExchange(res))
	}
	slog.DebugContext(ctx, "request finished",
		"method", res.Request.Method,
		"url", res.Request.URL,
		"status", res.Status(),
		"exchange_id", id,
	)
	return nil
}

func (i instrumentCtx) onError(req *resty.Request, err error) {
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")

	slog.ErrorContext(ctx, "request failed",
		"method", req.Method,
		"url", req.URL,
		"err", err,
	)
}
