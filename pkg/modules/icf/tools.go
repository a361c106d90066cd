package icf

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/clinref/icf-mcp-server/pkg/whoapi"
)

// ToolConfig defines configuration for a single tool
type ToolConfig struct {
	Enabled     bool   // Whether the tool is enabled
	Name        string // Tool name
	Description string // Tool description
}

// ICFToolsConfig defines configuration for all tools
type ICFToolsConfig struct {
	Lookup           ToolConfig
	Search           ToolConfig
	BrowseCategory   ToolConfig
	GetChildren      ToolConfig
	ExplainQualifier ToolConfig
	Overview         ToolConfig
}

// GetDefaultToolsConfig returns default tool configuration
func GetDefaultToolsConfig() ICFToolsConfig {
	return ICFToolsConfig{
		Lookup: ToolConfig{
			Enabled:     true,
			Name:        "icf_lookup",
			Description: "Looks up an ICF code (e.g. b280, d450, e310) and returns its title, definition, inclusions, exclusions, parent and children.",
		},
		Search: ToolConfig{
			Enabled:     true,
			Name:        "icf_search",
			Description: "Searches the ICF classification for a clinical term (e.g. 'walking', 'memory', 'pain') and returns matching codes ranked by relevance.",
		},
		BrowseCategory: ToolConfig{
			Enabled:     true,
			Name:        "icf_browse_category",
			Description: "Browses one of the four ICF components by prefix letter: b (Body Functions), s (Body Structures), d (Activities and Participation), e (Environmental Factors).",
		},
		GetChildren: ToolConfig{
			Enabled:     true,
			Name:        "icf_get_children",
			Description: "Lists the direct child codes of an ICF code for drilling down the classification hierarchy.",
		},
		ExplainQualifier: ToolConfig{
			Enabled:     true,
			Name:        "icf_explain_qualifier",
			Description: "Explains an ICF severity qualifier digit (0-4, 8 or 9) with its percentage range and a usage example. Answers locally without calling the WHO API.",
		},
		Overview: ToolConfig{
			Enabled:     true,
			Name:        "icf_overview",
			Description: "Returns an overview of the ICF classification: its four components, chapter layout, the qualifier scale and how to use these tools. No input parameter supported.",
		},
	}
}

// Tool definition builder methods
func (m *Module) buildLookupToolDefinition(config ToolConfig) mcp.Tool {
	return mcp.NewTool(m.BuildToolName(config.Name),
		mcp.WithDescription(config.Description),
		mcp.WithString("code", mcp.Required(), mcp.Description("ICF code to look up, e.g. b280 or d450")),
	)
}

func (m *Module) buildSearchToolDefinition(config ToolConfig) mcp.Tool {
	return mcp.NewTool(m.BuildToolName(config.Name),
		mcp.WithDescription(config.Description),
		mcp.WithString("query", mcp.Required(), mcp.Description("Clinical term to search for, e.g. 'walking' or 'memory'")),
		mcp.WithString("max_results", mcp.Description("Maximum number of results to return (default 10)")),
	)
}

func (m *Module) buildBrowseCategoryToolDefinition(config ToolConfig) mcp.Tool {
	return mcp.NewTool(m.BuildToolName(config.Name),
		mcp.WithDescription(config.Description),
		mcp.WithString("category", mcp.Required(), mcp.Description("Component letter: b, s, d or e")),
	)
}

func (m *Module) buildGetChildrenToolDefinition(config ToolConfig) mcp.Tool {
	return mcp.NewTool(m.BuildToolName(config.Name),
		mcp.WithDescription(config.Description),
		mcp.WithString("code", mcp.Required(), mcp.Description("ICF code whose children to list, e.g. d450")),
	)
}

func (m *Module) buildExplainQualifierToolDefinition(config ToolConfig) mcp.Tool {
	return mcp.NewTool(m.BuildToolName(config.Name),
		mcp.WithDescription(config.Description),
		mcp.WithString("qualifier", mcp.Required(), mcp.Description("Qualifier digit: 0, 1, 2, 3, 4, 8 or 9")),
	)
}

func (m *Module) buildOverviewToolDefinition(config ToolConfig) mcp.Tool {
	return mcp.NewTool(m.BuildToolName(config.Name),
		mcp.WithDescription(config.Description),
	)
}

// Tool handlers
func (m *Module) handleLookup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	code, ok := args["code"].(string)
	if !ok {
		return nil, fmt.Errorf("code parameter is required")
	}

	m.logger.Info("Looking up ICF code", zap.String("code", code))

	entity, err := m.client.Lookup(ctx, code)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(entity)
}

func (m *Module) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query, ok := args["query"].(string)
	if !ok {
		return nil, fmt.Errorf("query parameter is required")
	}

	maxResults := whoapi.DefaultMaxSearchResults
	if mr, ok := args["max_results"].(string); ok {
		if parsed, err := strconv.Atoi(mr); err == nil {
			maxResults = parsed
		}
	}

	m.logger.Info("Searching ICF classification",
		zap.String("query", query),
		zap.Int("max_results", maxResults))

	results, err := m.client.Search(ctx, query, maxResults)
	if err != nil {
		return errorResult(err), nil
	}

	return jsonResult(map[string]interface{}{
		"query":   query,
		"results": results,
		"count":   len(results),
	})
}

func (m *Module) handleBrowseCategory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	category, ok := args["category"].(string)
	if !ok {
		return nil, fmt.Errorf("category parameter is required")
	}

	m.logger.Info("Browsing ICF category", zap.String("category", category))

	view, err := m.client.BrowseCategory(ctx, category)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(view)
}

func (m *Module) handleGetChildren(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	code, ok := args["code"].(string)
	if !ok {
		return nil, fmt.Errorf("code parameter is required")
	}

	m.logger.Info("Listing ICF children", zap.String("code", code))

	children, err := m.client.Children(ctx, code)
	if err != nil {
		return errorResult(err), nil
	}

	return jsonResult(map[string]interface{}{
		"code":     code,
		"children": children,
		"count":    len(children),
	})
}

func (m *Module) handleExplainQualifier(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	raw, ok := args["qualifier"].(string)
	if !ok {
		return nil, fmt.Errorf("qualifier parameter is required")
	}

	m.logger.Info("Explaining ICF qualifier", zap.String("qualifier", raw))

	qualifier, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return errorResult(fmt.Errorf("invalid qualifier %q: valid values are 0, 1, 2, 3, 4, 8 and 9", raw)), nil
	}
	info, ok := qualifierTable[qualifier]
	if !ok {
		return errorResult(fmt.Errorf("invalid qualifier %d: valid values are 0, 1, 2, 3, 4, 8 and 9", qualifier)), nil
	}
	return jsonResult(info)
}

func (m *Module) handleOverview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m.logger.Info("Serving ICF overview")

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: classificationOverview,
			},
		},
	}, nil
}

// errorResult converts a client failure into a tool error result so the
// caller sees the message instead of a protocol error.
func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: err.Error(),
			},
		},
	}
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: string(data),
			},
		},
	}, nil
}
