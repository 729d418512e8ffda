// Command mcp exposes the product lookup over the Model Context Protocol
// on stdio, so agent frontends can scan and search without the HTTP API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/processedornot/scanner/internal/bootstrap"
	"github.com/processedornot/scanner/internal/config"
	"github.com/processedornot/scanner/internal/core/domain"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "mcp")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	srv := server.NewMCPServer("processedornot-scanner", "1.0.0")

	lookupTool := mcp.NewTool("lookup_product",
		mcp.WithDescription("Look up a food product by barcode and return it with processing and glycemic analysis."),
		mcp.WithString("barcode",
			mcp.Required(),
			mcp.Description("Product barcode, 6-18 digits, interior spaces allowed."),
		),
	)
	srv.AddTool(lookupTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		barcode, err := request.RequireString("barcode")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if domain.DetectInputType(barcode) != domain.BarcodeInput {
			return mcp.NewToolResultError("barcode must be 6-18 digits"), nil
		}
		return runLookup(ctx, app, barcode, domain.BrandFilters{})
	})

	searchTool := mcp.NewTool("search_products",
		mcp.WithDescription("Free-text food product search with optional brand filters."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Product name or description."),
		),
		mcp.WithString("include_brands",
			mcp.Description("Comma separated brand names the result must match."),
		),
		mcp.WithString("exclude_brands",
			mcp.Description("Comma separated brand names to reject."),
		),
	)
	srv.AddTool(searchTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filters := domain.BrandFilters{
			IncludeBrands: splitBrands(request.GetString("include_brands", "")),
			ExcludeBrands: splitBrands(request.GetString("exclude_brands", "")),
		}
		return runLookup(ctx, app, query, filters)
	})

	if err := server.ServeStdio(srv); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}

func runLookup(ctx context.Context, app *bootstrap.App, input string, filters domain.BrandFilters) (*mcp.CallToolResult, error) {
	result, err := app.Lookup.Lookup(ctx, input, filters)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode lookup result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func splitBrands(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
