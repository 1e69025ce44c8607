package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
)

// Default submission settings.
const (
	DefaultCompletePath = "/applications/list/%d/sign/"
	DefaultField        = "ready_document"
	DefaultFileName     = "signed_document.pdf"
	DefaultStatus       = "completed"
)

// MultipartSubmitter uploads a signed document as multipart form data to the
// application completion endpoint.
type MultipartSubmitter struct {
	Client  *http.Client
	BaseURL string
	// CompletePath is appended to BaseURL; %d is replaced by the application id.
	CompletePath string
	// Method defaults to POST.
	Method string
	// Token is sent as a bearer token when set.
	Token string
	// Status is sent in the "status" field; empty omits the field.
	Status string
}

// NewMultipartSubmitter returns a submitter using the default path, field
// names and status.
func NewMultipartSubmitter(client *http.Client, baseURL, token string) *MultipartSubmitter {
	return &MultipartSubmitter{
		Client:       client,
		BaseURL:      baseURL,
		CompletePath: DefaultCompletePath,
		Method:       http.MethodPost,
		Token:        token,
		Status:       DefaultStatus,
	}
}

// Endpoint returns the completion URL for applicationID.
func (s *MultipartSubmitter) Endpoint(applicationID int64) string {
	path := s.CompletePath
	if path == "" {
		path = DefaultCompletePath
	}
	if strings.Contains(path, "%d") {
		path = fmt.Sprintf(path, applicationID)
	}
	return strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Submit uploads document for applicationID.
func (s *MultipartSubmitter) Submit(ctx context.Context, applicationID int64, document []byte) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, DefaultField, DefaultFileName))
	header.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(document); err != nil {
		return fmt.Errorf("failed to write form file: %w", err)
	}
	if s.Status != "" {
		if err := mw.WriteField("status", s.Status); err != nil {
			return fmt.Errorf("failed to write status field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	method := s.Method
	if method == "" {
		method = http.MethodPost
	}
	endpoint := s.Endpoint(applicationID)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Request-ID", uuid.NewString())
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{URL: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
