package docs

import "github.com/invopop/jsonschema"

// ToolInfo represents information about a tool
type ToolInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
	Module      string                 `json:"module"`
}

// RecordDoc describes the shape of a record the tools return
type RecordDoc struct {
	Name   string             `json:"name"`
	Schema *jsonschema.Schema `json:"schema"`
}

// ToolsInfoResponse represents the response structure for /mcp/docs
type ToolsInfoResponse struct {
	Service    string      `json:"service"`
	Version    string      `json:"version"`
	TotalTools int         `json:"total_tools"`
	Modules    []string    `json:"enabled_modules"`
	Tools      []ToolInfo  `json:"tools"`
	Records    []RecordDoc `json:"records"`
}
