// Copyright © 2024 The ELPS authors

package compile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/luthersystems/ctxengine/diagnostic"
	"github.com/luthersystems/ctxengine/parser/token"
)

// maxResponse bounds the size of a compile service response body.
const maxResponse = 32 << 20

// RemoteBackend delegates compilation to an HTTP compile service.
type RemoteBackend struct {
	cfg    Config
	log    *logrus.Entry
	client *http.Client
}

var _ Backend = (*RemoteBackend)(nil)

// NewRemoteBackend returns a backend posting documents to
// cfg.Remote.Endpoint.  A nil log discards output.
func NewRemoteBackend(cfg Config, log *logrus.Entry) *RemoteBackend {
	if log == nil {
		log = discardLogger()
	}
	return &RemoteBackend{
		cfg:    cfg,
		log:    log,
		client: &http.Client{},
	}
}

type remoteRequest struct {
	URI     string `json:"uri"`
	Content string `json:"content"`
	Format  string `json:"format"`
}

type remoteDiagnostic struct {
	Message  string     `json:"message"`
	Severity string     `json:"severity"`
	Range    token.Span `json:"range"`
}

type remoteResponse struct {
	Success     bool               `json:"success"`
	Log         string             `json:"log"`
	OutputURL   string             `json:"output_url"`
	Diagnostics []remoteDiagnostic `json:"diagnostics"`
}

// Compile implements Backend.
func (b *RemoteBackend) Compile(ctx context.Context, req Request) *Result {
	log := b.log.WithFields(logrus.Fields{"uri": req.URI, "endpoint": b.cfg.Remote.Endpoint})

	ctx, cancel := context.WithTimeout(ctx, b.cfg.timeout())
	defer cancel()

	resp, err := b.post(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			err = fmt.Errorf("%w after %v", ErrTimeout, b.cfg.timeout())
		case errors.Is(err, context.Canceled):
			err = ErrCanceled
		}
		log.WithError(err).Warn("Remote compilation failed")
		return Failed("", err)
	}

	res := &Result{
		Success: resp.Success,
		PDFPath: resp.OutputURL,
		Log:     resp.Log,
	}
	size := offset32(len(req.Text))
	for _, rd := range resp.Diagnostics {
		d := diagnostic.Diagnostic{
			Range:   clampSpan(rd.Range, size),
			Message: rd.Message,
			Source:  diagnostic.SourceCompiler,
		}
		switch strings.ToLower(rd.Severity) {
		case "error":
			d.Severity = diagnostic.SeverityError
			res.Errors = append(res.Errors, d)
		case "warning":
			d.Severity = diagnostic.SeverityWarning
			res.Warnings = append(res.Warnings, d)
		default:
			log.WithFields(logrus.Fields{
				"severity": rd.Severity,
				"message":  rd.Message,
			}).Debug("Dropped remote diagnostic")
		}
	}
	if len(res.Errors) > 0 {
		res.Success = false
	}
	log.WithFields(logrus.Fields{
		"success":  res.Success,
		"errors":   len(res.Errors),
		"warnings": len(res.Warnings),
	}).Info("Compilation finished")
	return res
}

// clampSpan limits s to a document of size bytes.  A reversed span collapses
// to its start.
func clampSpan(s token.Span, size uint32) token.Span {
	s.Start = min(s.Start, size)
	s.End = min(s.End, size)
	if s.End < s.Start {
		s.End = s.Start
	}
	return s
}

func (b *RemoteBackend) post(ctx context.Context, req Request) (*remoteResponse, error) {
	body, err := json.Marshal(remoteRequest{URI: req.URI, Content: req.Text, Format: "pdf"})
	if err != nil {
		return nil, err
	}
	url := strings.TrimRight(b.cfg.Remote.Endpoint, "/") + "/compile"
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("compile request: %w", err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	if b.cfg.Remote.Token != "" {
		hreq.Header.Set("Authorization", "Bearer "+b.cfg.Remote.Token)
	}
	hresp, err := b.client.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("compile service: %w", err)
	}
	defer hresp.Body.Close() //nolint:errcheck // read-only
	data, err := io.ReadAll(io.LimitReader(hresp.Body, maxResponse))
	if err != nil {
		return nil, fmt.Errorf("compile service: %w", err)
	}
	if hresp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("compile service: %s: %s", hresp.Status, strings.TrimSpace(string(data)))
	}
	var resp remoteResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("compile service: invalid response: %w", err)
	}
	return &resp, nil
}
