// Package openai adapts the OpenAI Batch API to the pipeline's batch
// service port. The adapter owns credentials and endpoint configuration;
// callers receive it through ports.BatchService and never touch the SDK
// directly.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	sdk "github.com/sashabaranov/go-openai"

	"github.com/prefpoll/prefpoll/internal/application"
	"github.com/prefpoll/prefpoll/internal/ports"
)

// completionWindow is the only window the Batch API currently accepts.
const completionWindow = "24h"

// ErrEmptyAPIKey indicates a client was constructed without credentials.
var ErrEmptyAPIKey = errors.New("API key cannot be empty")

var _ ports.BatchService = (*Client)(nil)

// Client implements ports.BatchService against the OpenAI Batch API.
type Client struct {
	api *sdk.Client
}

// NewClient builds a batch client from the service configuration.
// BaseURL is optional and supports API-compatible gateways.
func NewClient(cfg application.OpenAIConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	clientConfig := sdk.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &Client{api: sdk.NewClientWithConfig(clientConfig)}, nil
}

// CreateFile uploads one serialized chunk of request lines with the batch
// purpose and returns the provider's file identifier.
func (c *Client) CreateFile(ctx context.Context, name string, lines []byte) (string, error) {
	file, err := c.api.CreateFileBytes(ctx, sdk.FileBytesRequest{
		Name:    name,
		Bytes:   lines,
		Purpose: sdk.PurposeBatch,
	})
	if err != nil {
		return "", fmt.Errorf("upload batch input: %w", err)
	}
	return file.ID, nil
}

// CreateBatch requests batch creation over a previously uploaded input
// file. Metadata is attached verbatim so operators can trace a provider
// batch back to its question and run.
func (c *Client) CreateBatch(ctx context.Context, inputFileID string, metadata map[string]string) (ports.ProviderBatch, error) {
	meta := make(map[string]any, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}

	resp, err := c.api.CreateBatch(ctx, sdk.CreateBatchRequest{
		InputFileID:      inputFileID,
		Endpoint:         sdk.BatchEndpointChatCompletions,
		CompletionWindow: completionWindow,
		Metadata:         meta,
	})
	if err != nil {
		return ports.ProviderBatch{}, fmt.Errorf("create batch: %w", err)
	}
	return toProviderBatch(resp.Batch)
}

// RetrieveBatch fetches the batch's current provider state.
func (c *Client) RetrieveBatch(ctx context.Context, providerID string) (ports.ProviderBatch, error) {
	resp, err := c.api.RetrieveBatch(ctx, providerID)
	if err != nil {
		return ports.ProviderBatch{}, fmt.Errorf("retrieve batch: %w", err)
	}
	return toProviderBatch(resp.Batch)
}

// FetchFileContent streams a file's content. The caller owns closing the
// reader.
func (c *Client) FetchFileContent(ctx context.Context, fileID string) (io.ReadCloser, error) {
	content, err := c.api.GetFileContent(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("fetch file content: %w", err)
	}
	return content, nil
}

// toProviderBatch projects the SDK batch into the boundary type, keeping
// the full payload for verbatim storage.
func toProviderBatch(b sdk.Batch) (ports.ProviderBatch, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return ports.ProviderBatch{}, fmt.Errorf("encode batch payload: %w", err)
	}

	pb := ports.ProviderBatch{
		ID:     b.ID,
		Status: string(b.Status),
		Raw:    raw,
	}
	if b.OutputFileID != nil {
		pb.OutputFileID = *b.OutputFileID
	}
	return pb, nil
}
