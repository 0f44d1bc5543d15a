package openai

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/prefpoll/prefpoll/internal/ports"
)

const tracerName = "batch-service"

// tracedService records one span per provider call with the identifiers
// needed to correlate a trace with stored batches.
type tracedService struct {
	next ports.BatchService
}

// TracingMiddleware creates middleware that wraps every provider call in
// an OpenTelemetry span.
func TracingMiddleware() Middleware {
	return func(next ports.BatchService) ports.BatchService {
		return &tracedService{next: next}
	}
}

func (t *tracedService) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, op, trace.WithAttributes(attrs...))
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *tracedService) CreateFile(ctx context.Context, name string, lines []byte) (string, error) {
	ctx, span := t.startSpan(ctx, "BatchService.CreateFile",
		attribute.String("file.name", name),
		attribute.Int("file.bytes", len(lines)),
	)
	fileID, err := t.next.CreateFile(ctx, name, lines)
	if err == nil {
		span.SetAttributes(attribute.String("file.id", fileID))
	}
	finishSpan(span, err)
	return fileID, err
}

func (t *tracedService) CreateBatch(ctx context.Context, inputFileID string, metadata map[string]string) (ports.ProviderBatch, error) {
	ctx, span := t.startSpan(ctx, "BatchService.CreateBatch",
		attribute.String("file.id", inputFileID),
	)
	pb, err := t.next.CreateBatch(ctx, inputFileID, metadata)
	if err == nil {
		span.SetAttributes(
			attribute.String("batch.id", pb.ID),
			attribute.String("batch.status", pb.Status),
		)
	}
	finishSpan(span, err)
	return pb, err
}

func (t *tracedService) RetrieveBatch(ctx context.Context, providerID string) (ports.ProviderBatch, error) {
	ctx, span := t.startSpan(ctx, "BatchService.RetrieveBatch",
		attribute.String("batch.id", providerID),
	)
	pb, err := t.next.RetrieveBatch(ctx, providerID)
	if err == nil {
		span.SetAttributes(attribute.String("batch.status", pb.Status))
	}
	finishSpan(span, err)
	return pb, err
}

func (t *tracedService) FetchFileContent(ctx context.Context, fileID string) (io.ReadCloser, error) {
	ctx, span := t.startSpan(ctx, "BatchService.FetchFileContent",
		attribute.String("file.id", fileID),
	)
	rc, err := t.next.FetchFileContent(ctx, fileID)
	finishSpan(span, err)
	return rc, err
}
