package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/prefpoll/prefpoll/internal/ports"
)

// FakeBatchService implements ports.BatchService with deterministic
// in-memory behavior for testing the submitter, ingestor, and jobs
// without the external provider.
type FakeBatchService struct {
	mu sync.Mutex

	// files maps uploaded file IDs to their content.
	files map[string][]byte

	// outputs maps output file IDs to their newline-delimited results.
	outputs map[string][]byte

	// batches maps provider batch IDs to their current boundary view.
	batches map[string]ports.ProviderBatch

	// CreateFileErr, CreateBatchErr, RetrieveErr, and FetchErr, when
	// set, make the corresponding operation fail.
	CreateFileErr  error
	CreateBatchErr error
	RetrieveErr    error
	FetchErr       error

	nextFile  int
	nextBatch int
}

var _ ports.BatchService = (*FakeBatchService)(nil)

// NewFakeBatchService creates an empty fake.
func NewFakeBatchService() *FakeBatchService {
	return &FakeBatchService{
		files:   make(map[string][]byte),
		outputs: make(map[string][]byte),
		batches: make(map[string]ports.ProviderBatch),
	}
}

// CreateFile implements ports.BatchService.
func (f *FakeBatchService) CreateFile(_ context.Context, _ string, lines []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateFileErr != nil {
		return "", f.CreateFileErr
	}
	f.nextFile++
	id := fmt.Sprintf("file-%d", f.nextFile)
	f.files[id] = append([]byte(nil), lines...)
	return id, nil
}

// CreateBatch implements ports.BatchService. New batches start in the
// provider's validating state.
func (f *FakeBatchService) CreateBatch(_ context.Context, inputFileID string, metadata map[string]string) (ports.ProviderBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateBatchErr != nil {
		return ports.ProviderBatch{}, f.CreateBatchErr
	}
	f.nextBatch++
	pb := ports.ProviderBatch{
		ID:     fmt.Sprintf("provider-batch-%d", f.nextBatch),
		Status: "validating",
	}
	pb.Raw = f.rawPayload(pb, inputFileID, metadata)
	f.batches[pb.ID] = pb
	return pb, nil
}

// RetrieveBatch implements ports.BatchService.
func (f *FakeBatchService) RetrieveBatch(_ context.Context, providerID string) (ports.ProviderBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RetrieveErr != nil {
		return ports.ProviderBatch{}, f.RetrieveErr
	}
	pb, ok := f.batches[providerID]
	if !ok {
		return ports.ProviderBatch{}, fmt.Errorf("unknown batch %s", providerID)
	}
	return pb, nil
}

// FetchFileContent implements ports.BatchService.
func (f *FakeBatchService) FetchFileContent(_ context.Context, fileID string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	content, ok := f.outputs[fileID]
	if !ok {
		return nil, fmt.Errorf("unknown file %s", fileID)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

// CompleteBatch transitions a provider batch to completed with the given
// newline-delimited output content.
func (f *FakeBatchService) CompleteBatch(providerID string, output []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pb, ok := f.batches[providerID]
	if !ok {
		return
	}
	f.nextFile++
	outID := fmt.Sprintf("output-file-%d", f.nextFile)
	f.outputs[outID] = append([]byte(nil), output...)
	pb.Status = "completed"
	pb.OutputFileID = outID
	pb.Raw = f.rawPayload(pb, "", nil)
	f.batches[providerID] = pb
}

// SetStatus overrides a provider batch's status.
func (f *FakeBatchService) SetStatus(providerID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pb, ok := f.batches[providerID]
	if !ok {
		return
	}
	pb.Status = status
	pb.Raw = f.rawPayload(pb, "", nil)
	f.batches[providerID] = pb
}

// FileContent returns an uploaded input file's bytes.
func (f *FakeBatchService) FileContent(fileID string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files[fileID]
}

// FileCount reports how many input files were uploaded.
func (f *FakeBatchService) FileCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

// rawPayload builds a provider-shaped JSON payload for storage tests.
func (f *FakeBatchService) rawPayload(pb ports.ProviderBatch, inputFileID string, metadata map[string]string) json.RawMessage {
	payload := map[string]any{
		"id":     pb.ID,
		"object": "batch",
		"status": pb.Status,
	}
	if inputFileID != "" {
		payload["input_file_id"] = inputFileID
	}
	if pb.OutputFileID != "" {
		payload["output_file_id"] = pb.OutputFileID
	}
	if len(metadata) > 0 {
		payload["metadata"] = metadata
	}
	raw, _ := json.Marshal(payload)
	return raw
}

// ResultLine builds one provider output line for a unit token with the
// given message content, as the ingestor would receive it.
func ResultLine(token, content string) []byte {
	body := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	line := map[string]any{
		"id":        "resp-" + token,
		"custom_id": token,
		"response":  map[string]any{"status_code": 200, "body": body},
		"error":     nil,
	}
	raw, _ := json.Marshal(line)
	return raw
}

// FailedResultLine builds one provider output line carrying a
// request-level error.
func FailedResultLine(token string) []byte {
	line := map[string]any{
		"id":        "resp-" + token,
		"custom_id": token,
		"response":  map[string]any{"status_code": 500, "body": map[string]any{}},
		"error":     map[string]any{"code": "server_error", "message": "boom"},
	}
	raw, _ := json.Marshal(line)
	return raw
}
