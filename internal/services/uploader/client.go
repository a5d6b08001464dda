package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/pkg/errors"

	"github.com/blkmlk/file-dashboard/env"
)

type UploadRequest struct {
	OwnerID  string
	ParentID *string
	FileName string
	Size     int64
	Body     io.Reader
}

type UploadResponse struct {
	Success bool   `json:"success"`
	FileID  string `json:"fileId,omitempty"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Client sends one file to the upload endpoint.
type Client interface {
	Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error)
}

type httpClient struct {
	uploadURL string
	client    *http.Client
}

func NewHTTPClient() (Client, error) {
	uploadURL, err := env.Get(env.UploadURL)
	if err != nil {
		return nil, err
	}

	return &httpClient{
		uploadURL: uploadURL,
		client:    http.DefaultClient,
	}, nil
}

func (c *httpClient) Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error) {
	var buffer bytes.Buffer
	body := multipart.NewWriter(&buffer)

	writer, err := body.CreateFormFile("file", req.FileName)
	if err != nil {
		return nil, err
	}

	if _, err = io.Copy(writer, req.Body); err != nil {
		return nil, err
	}

	if err = body.WriteField("ownerId", req.OwnerID); err != nil {
		return nil, err
	}
	if req.ParentID != nil {
		if err = body.WriteField("parentId", *req.ParentID); err != nil {
			return nil, err
		}
	}
	if err = body.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &buffer)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", body.FormDataContentType())

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var out UploadResponse
	if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if !out.Success {
		if out.Error != "" {
			return nil, errors.New(out.Error)
		}
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return &out, nil
}
