package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/patrickwarner/consentstudio/internal/normalize"
	"github.com/patrickwarner/consentstudio/internal/observability"
	"github.com/patrickwarner/consentstudio/internal/storage"
	"github.com/patrickwarner/consentstudio/internal/units"
)

type NormalizeBannerInput struct {
	Banner json.RawMessage `json:"banner"`
}

type PositionByCodeInput struct {
	Code          string  `json:"code"`
	WidthPercent  float64 `json:"width_percent"`
	HeightPercent float64 `json:"height_percent"`
}

type PositionByCodeOutput struct {
	Top  string `json:"top"`
	Left string `json:"left"`
}

type FetchBannerInput struct {
	ID string `json:"id"`
}

// BannerTools holds the dependencies of the banner tools.
type BannerTools struct {
	normalizer *normalize.Normalizer
	store      storage.TemplateStore
	logger     *zap.Logger
}

// jsonResult returns v as the text content of a tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}}}, nil
}

// NormalizeBanner repairs a banner document of any shape into the current
// one. The banner may be given as an object or as a JSON-encoded string.
func (s *BannerTools) NormalizeBanner(ctx context.Context, req *mcp.CallToolRequest, input NormalizeBannerInput) (*mcp.CallToolResult, any, error) {
	raw := bytes.TrimSpace(input.Banner)
	var encoded string
	if len(raw) > 0 && raw[0] == '"' && json.Unmarshal(raw, &encoded) == nil {
		raw = []byte(encoded)
	}
	doc := s.normalizer.NormalizeJSON(raw)
	s.logger.Info("banner normalized", zap.Int("components", len(doc.Components)))
	res, err := jsonResult(doc)
	return res, nil, err
}

// PositionByCode computes the quick-position coordinates of a component of
// the given size.
func (s *BannerTools) PositionByCode(ctx context.Context, req *mcp.CallToolRequest, input PositionByCodeInput) (*mcp.CallToolResult, PositionByCodeOutput, error) {
	p, err := units.PositionByCode(units.GridCode(input.Code), units.Dimensions{
		WidthPercent:  input.WidthPercent,
		HeightPercent: input.HeightPercent,
	})
	if err != nil {
		return nil, PositionByCodeOutput{}, err
	}
	return nil, PositionByCodeOutput{
		Top:  units.FormatPercent(p.Top),
		Left: units.FormatPercent(p.Left),
	}, nil
}

// FetchBanner loads a stored banner from the template store.
func (s *BannerTools) FetchBanner(ctx context.Context, req *mcp.CallToolRequest, input FetchBannerInput) (*mcp.CallToolResult, any, error) {
	if input.ID == "" {
		return nil, nil, errors.New("id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	doc, err := s.store.Fetch(ctx, input.ID)
	if err != nil {
		s.logger.Warn("fetch banner failed", zap.String("template_id", input.ID), zap.Error(err))
		return nil, nil, fmt.Errorf("fetch banner %s: %w", input.ID, err)
	}
	res, err := jsonResult(doc)
	return res, nil, err
}

// newMCPServer registers the banner tools on a new MCP server.
func newMCPServer(tools *BannerTools) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "consentstudio",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "normalize_banner",
		Description: "Repair a consent banner document of any shape into the current schema",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"banner": map[string]interface{}{
					"type":        []string{"object", "string"},
					"description": "Banner document, as an object or a JSON string",
				},
			},
			"required": []string{"banner"},
		},
	}, tools.NormalizeBanner)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "position_by_code",
		Description: "Compute the percentage position that snaps a component to one of nine grid positions",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"code": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"tl", "tc", "tr", "cl", "cc", "cr", "bl", "bc", "br"},
					"description": "Grid code: first letter vertical (t/c/b), second horizontal (l/c/r)",
				},
				"width_percent": map[string]interface{}{
					"type":        "number",
					"description": "Component width as a percentage of its container",
				},
				"height_percent": map[string]interface{}{
					"type":        "number",
					"description": "Component height as a percentage of its container",
				},
			},
			"required": []string{"code", "width_percent", "height_percent"},
		},
	}, tools.PositionByCode)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "fetch_banner",
		Description: "Load a stored consent banner by id",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Template id",
				},
			},
			"required": []string{"id"},
		},
	}, tools.FetchBanner)

	return server
}

func main() {
	// Logs go to stderr; stdout carries the MCP stream.
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(observability.ParseLogLevel(os.Getenv("ENV"), os.Getenv("LOG_LEVEL")))
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.NameKey = "logger"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"

	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("consentstudio-mcp").With(zap.String("service", "consentstudio-mcp"))

	storeURL := os.Getenv("TEMPLATE_STORE_URL")
	if storeURL == "" {
		storeURL = "http://localhost:8787"
	}

	tools := &BannerTools{
		normalizer: normalize.New(logger),
		store:      storage.NewClient(storeURL, 10*time.Second, logger, observability.NewNoOpRegistry()),
		logger:     logger,
	}
	server := newMCPServer(tools)

	var logBuffer bytes.Buffer
	transport := &mcp.LoggingTransport{
		Transport: &mcp.StdioTransport{},
		Writer:    &logBuffer,
	}

	logger.Info("MCP server running via stdio", zap.String("template_store", storeURL))
	if err := server.Run(context.Background(), transport); err != nil {
		logger.Fatal("Server error", zap.Error(err), zap.String("mcp_logs", logBuffer.String()))
	}
}
