package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kimkjin/BannerComposer/internal/models"
)

var tracer = otel.Tracer("render-client")

// HTTPClient talks to the rendering service over HTTP.
type HTTPClient struct {
	BaseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a rendering client for baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type artifactResponse struct {
	Data            string         `json:"data"`
	Width           int            `json:"width"`
	Height          int            `json:"height"`
	CompositionData map[string]any `json:"composition_data,omitempty"`
}

type logoInfo struct {
	Folder   string `json:"folder"`
	Filename string `json:"filename"`
}

// RenderSlot posts the source image, logos and override as multipart form data.
func (c *HTTPClient) RenderSlot(ctx context.Context, req SlotRequest) (models.Artifact, error) {
	ctx, span := tracer.Start(ctx, "render_slot")
	defer span.End()
	span.SetAttributes(
		attribute.String("render.format", req.Format.Name),
		attribute.String("render.source", string(req.Source.ID)),
		attribute.Int("render.logos", len(req.Logos)),
	)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	formatJSON, err := json.Marshal(req.Format)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("failed to marshal format: %w", err)
	}
	if err := writer.WriteField("format", string(formatJSON)); err != nil {
		return models.Artifact{}, fmt.Errorf("failed to write format field: %w", err)
	}
	if err := writer.WriteField("format_name", req.Format.Name); err != nil {
		return models.Artifact{}, fmt.Errorf("failed to write format name: %w", err)
	}

	filename := req.Source.Filename
	if filename == "" {
		filename = string(req.Source.ID) + ".jpg"
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("failed to create source part: %w", err)
	}
	if _, err := part.Write(req.Source.Data); err != nil {
		return models.Artifact{}, fmt.Errorf("failed to write source image: %w", err)
	}

	infos := make([]logoInfo, 0, len(req.Logos))
	for _, logo := range req.Logos {
		infos = append(infos, logoInfo{Folder: logo.Folder, Filename: logo.Filename})
		part, err := writer.CreateFormFile("logos", logo.Filename)
		if err != nil {
			return models.Artifact{}, fmt.Errorf("failed to create logo part: %w", err)
		}
		if _, err := part.Write(logo.Data); err != nil {
			return models.Artifact{}, fmt.Errorf("failed to write logo %s: %w", logo.Key(), err)
		}
	}
	logosJSON, err := json.Marshal(infos)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("failed to marshal logos: %w", err)
	}
	if err := writer.WriteField("selected_logos", string(logosJSON)); err != nil {
		return models.Artifact{}, fmt.Errorf("failed to write logos field: %w", err)
	}

	override := req.Override
	if override == nil {
		override = &models.Override{}
	}
	overrideJSON, err := json.Marshal(override)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("failed to marshal override: %w", err)
	}
	if err := writer.WriteField("overrides", string(overrideJSON)); err != nil {
		return models.Artifact{}, fmt.Errorf("failed to write override field: %w", err)
	}

	if err := writer.Close(); err != nil {
		return models.Artifact{}, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	artifact, err := c.post(ctx, "/render/slot", writer.FormDataContentType(), body)
	if err != nil {
		span.RecordError(err)
		return models.Artifact{}, err
	}
	return artifact, nil
}

type compositeComponent struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// RenderComposite posts the component artifacts as JSON in dependency order.
func (c *HTTPClient) RenderComposite(ctx context.Context, req CompositeRequest) (models.Artifact, error) {
	ctx, span := tracer.Start(ctx, "render_composite")
	defer span.End()
	span.SetAttributes(
		attribute.String("render.format", req.Format.Name),
		attribute.Int("render.components", len(req.Components)),
	)

	components := make([]compositeComponent, 0, len(req.Components))
	for _, comp := range req.Components {
		if len(comp.Artifact.Data) == 0 {
			err := fmt.Errorf("%w: %s", ErrMissingComponent, comp.Slot)
			span.RecordError(err)
			return models.Artifact{}, err
		}
		components = append(components, compositeComponent{
			Name: comp.Slot,
			Data: base64.StdEncoding.EncodeToString(comp.Artifact.Data),
		})
	}

	requestBody, err := json.Marshal(map[string]any{
		"format":     req.Format,
		"components": components,
	})
	if err != nil {
		return models.Artifact{}, fmt.Errorf("failed to marshal composite request: %w", err)
	}

	artifact, err := c.post(ctx, "/render/composite", "application/json", bytes.NewReader(requestBody))
	if err != nil {
		span.RecordError(err)
		return models.Artifact{}, err
	}
	return artifact, nil
}

func (c *HTTPClient) post(ctx context.Context, path, contentType string, body io.Reader) (models.Artifact, error) {
	requestID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+path, body)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("failed to call rendering service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return models.Artifact{}, fmt.Errorf("rendering service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var decoded artifactResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return models.Artifact{}, fmt.Errorf("failed to decode rendering response: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(decoded.Data)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("failed to decode artifact data: %w", err)
	}
	if len(data) == 0 {
		return models.Artifact{}, fmt.Errorf("rendering service returned an empty artifact")
	}

	c.logger.Debug("Render call completed", "path", path, "request_id", requestID, "bytes", len(data), "elapsed", time.Since(start))

	return models.Artifact{
		Data:            data,
		Width:           decoded.Width,
		Height:          decoded.Height,
		CompositionData: decoded.CompositionData,
	}, nil
}
