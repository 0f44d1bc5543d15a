package ports

import (
	"context"
	"encoding/json"
	"io"
)

// ProviderBatch is the boundary view of an external batch. Raw carries the
// provider's response verbatim for storage; the remaining fields are the
// typed projection parsed once at the boundary so internal code never
// performs ad hoc key lookups on semi-structured payloads.
type ProviderBatch struct {
	// ID is the provider's batch identifier.
	ID string

	// Status is the provider's lifecycle state string.
	Status string

	// OutputFileID references the completed output resource, empty until
	// the batch completes.
	OutputFileID string

	// Raw is the provider's full response payload.
	Raw json.RawMessage
}

// BatchService is the external completion service, reduced to the four
// operations the pipeline needs. Implementations own credentials and
// endpoint configuration; the submitter and ingestor receive the client
// injected so tests can substitute a fake. Failures are not retried here;
// they propagate to the caller, which owns retry policy.
type BatchService interface {
	// CreateFile uploads one serialized chunk of request lines and
	// returns the provider's file identifier.
	CreateFile(ctx context.Context, name string, lines []byte) (string, error)

	// CreateBatch requests batch creation over a previously uploaded
	// input file.
	CreateBatch(ctx context.Context, inputFileID string, metadata map[string]string) (ProviderBatch, error)

	// RetrieveBatch re-fetches the batch's current state.
	RetrieveBatch(ctx context.Context, providerID string) (ProviderBatch, error)

	// FetchFileContent streams the newline-delimited output resource.
	// The caller closes the reader.
	FetchFileContent(ctx context.Context, fileID string) (io.ReadCloser, error)
}
