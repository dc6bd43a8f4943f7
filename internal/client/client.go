package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/bddgen/internal/bdd"
)

// Client talks to the conversion service. It implements the document
// analyzer, feature compiler and step compiler used by the orchestrator.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// AnalyzeResponse is the body of POST /api/conversion/analyze.
type AnalyzeResponse struct {
	SuggestedType    *string            `json:"suggested_type"`
	Filename         string             `json:"filename,omitempty"`
	FileFormat       string             `json:"file_format,omitempty"`
	ConfidenceScores map[string]float64 `json:"confidence_scores,omitempty"`
}

// FeatureResponse is the body of POST /api/convert-to-feature.
type FeatureResponse struct {
	FeatureContent string            `json:"feature_content"`
	SuggestedSteps map[string]string `json:"suggested_steps"`
}

// StepsRequest is the body of POST /api/generate-steps.
type StepsRequest struct {
	FeatureContent      string  `json:"feature_content"`
	ProgrammingLanguage string  `json:"programming_language"`
	Framework           *string `json:"framework"`
}

// StepsResponse is the body of POST /api/generate-steps.
type StepsResponse struct {
	StepDefinitions map[string]string `json:"step_definitions"`
	Imports         []string          `json:"imports"`
	SetupCode       *string           `json:"setup_code"`
}

// Analyze asks the service to classify doc. Local validation failures are
// returned as is; every other failure is wrapped in *bdd.AnalysisError.
func (c *Client) Analyze(ctx context.Context, doc bdd.Document) (*bdd.AnalysisResult, error) {
	if err := doc.Check(); err != nil {
		return nil, err
	}

	var resp AnalyzeResponse
	if err := c.postFile(ctx, "analyze", "/api/conversion/analyze", doc, nil, &resp); err != nil {
		return nil, &bdd.AnalysisError{Reason: err}
	}

	result := &bdd.AnalysisResult{}
	if resp.SuggestedType != nil {
		cat := bdd.DocumentCategory(*resp.SuggestedType)
		if !cat.Valid() {
			return nil, &bdd.AnalysisError{Reason: bdd.ParseErrorf("suggested_type %q is not a known category", *resp.SuggestedType)}
		}
		result.SuggestedCategory = &cat
	}
	if len(resp.ConfidenceScores) > 0 {
		result.Scores = make(map[bdd.DocumentCategory]float64, len(resp.ConfidenceScores))
		for k, v := range resp.ConfidenceScores {
			if cat := bdd.DocumentCategory(k); cat.Valid() {
				result.Scores[cat] = v
			}
		}
	}
	return result, nil
}

// CompileFeature converts doc into Gherkin using the confirmed category.
func (c *Client) CompileFeature(ctx context.Context, doc bdd.Document, category bdd.DocumentCategory) (*bdd.FeatureArtifact, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", bdd.ErrUnknownCategory, category)
	}
	if err := doc.Check(); err != nil {
		return nil, err
	}

	var resp FeatureResponse
	fields := map[string]string{"doc_type": string(category)}
	if err := c.postFile(ctx, "convert to feature", "/api/convert-to-feature", doc, fields, &resp); err != nil {
		return nil, err
	}
	if !bdd.HasFeatureHeader(resp.FeatureContent) {
		return nil, bdd.ParseErrorf("convert to feature: response has no Feature: header")
	}
	if resp.SuggestedSteps == nil {
		resp.SuggestedSteps = map[string]string{}
	}
	return &bdd.FeatureArtifact{
		Content:        resp.FeatureContent,
		SuggestedSteps: resp.SuggestedSteps,
	}, nil
}

// CompileSteps generates step definitions for feature. Incompatible
// targets and step-less features fail before any request is sent.
func (c *Client) CompileSteps(ctx context.Context, feature string, target bdd.Target) (*bdd.StepDefinitionArtifact, error) {
	if strings.TrimSpace(feature) == "" {
		return nil, bdd.ErrEmptyFeature
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if len(bdd.ExtractSteps(feature)) == 0 {
		return nil, bdd.ErrNoSteps
	}

	req := StepsRequest{
		FeatureContent:      feature,
		ProgrammingLanguage: string(target.Language),
	}
	if target.Framework != "" {
		fw := string(target.Framework)
		req.Framework = &fw
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal steps request: %w", err)
	}

	var resp StepsResponse
	if err := c.do(ctx, "generate steps", "/api/generate-steps", "application/json", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.StepDefinitions) == 0 {
		return nil, bdd.ParseErrorf("generate steps: response has no step definitions")
	}
	art := &bdd.StepDefinitionArtifact{
		StepDefinitions: resp.StepDefinitions,
		Imports:         bdd.DedupImports(resp.Imports),
	}
	if resp.SetupCode != nil {
		art.SetupCode = *resp.SetupCode
	}
	return art, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Health checks that the service is up.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &bdd.UpstreamError{Op: "health", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return upstreamError("health", resp)
	}
	return nil
}

func (c *Client) postFile(ctx context.Context, op, path string, doc bdd.Document, fields map[string]string, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(doc.Filename())))
	h.Set("Content-Type", contentType(doc.Format()))
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(doc.Content()); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	return c.do(ctx, op, path, mw.FormDataContentType(), buf.Bytes(), out)
}

func (c *Client) do(ctx context.Context, op, path, contentType string, body []byte, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	reqID := uuid.NewString()
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-Id", reqID)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// A deadline is a timeout of the service call; cancellation is the
		// caller's own doing and passes through unwrapped.
		if errors.Is(ctx.Err(), context.Canceled) && errors.Is(err, context.Canceled) {
			return context.Canceled
		}
		return &bdd.UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("service call",
		"op", op,
		"request_id", reqID,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return upstreamError(op, resp)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 16<<20)).Decode(out); err != nil {
		return bdd.ParseErrorf("%s: decode response: %v", op, err)
	}
	return nil
}

func upstreamError(op string, resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(respBody))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	return &bdd.UpstreamError{Op: op, StatusCode: resp.StatusCode, Message: msg}
}

func contentType(f bdd.DocumentFormat) string {
	switch f {
	case bdd.FormatPDF:
		return "application/pdf"
	case bdd.FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case bdd.FormatTXT:
		return "text/plain"
	}
	return "application/octet-stream"
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
