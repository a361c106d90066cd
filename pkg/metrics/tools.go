package metrics

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// WrapToolHandler wraps a tool handler with metrics collection
func WrapToolHandler(handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), toolName, moduleName string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		RecordModuleRequest(moduleName)

		result, err := handler(ctx, request)

		duration := time.Since(start)
		RecordMCPToolCall(toolName, moduleName, duration, err == nil)
		if err != nil {
			RecordMCPToolError(toolName, moduleName, categorizeError(err))
		}

		return result, err
	}
}

// categorizeError buckets a tool error by its message. The whoapi error
// types spell out credentials/authentication/not found in their messages,
// so the matches below pick them up without importing the package.
func categorizeError(err error) string {
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "not found"):
		return "not_found"
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return "timeout"
	case strings.Contains(errStr, "credentials not configured"):
		return "config_error"
	case strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "forbidden") || strings.Contains(errStr, "authentication"):
		return "auth_error"
	case strings.Contains(errStr, "invalid"):
		return "invalid_input"
	case strings.Contains(errStr, "connection") || strings.Contains(errStr, "network"):
		return "network_error"
	case strings.Contains(errStr, "upstream"):
		return "upstream_error"
	default:
		return "unknown"
	}
}

// RecordMCPToolCall records an MCP tool call
func RecordMCPToolCall(toolName, module string, duration time.Duration, success bool) {
	m := Get()
	if m == nil {
		return
	}

	status := "failure"
	if success {
		status = "success"
	}

	m.MCPToolCallsTotal.WithLabelValues(toolName, module, status).Inc()
	m.MCPToolCallDuration.WithLabelValues(toolName, module).Observe(duration.Seconds())
}

// RecordMCPToolError records an MCP tool error
func RecordMCPToolError(toolName, module, errorType string) {
	m := Get()
	if m != nil {
		m.MCPToolErrorsTotal.WithLabelValues(toolName, module, errorType).Inc()
	}
}

// RecordModuleRequest records a module request
func RecordModuleRequest(moduleName string) {
	m := Get()
	if m != nil {
		m.ModuleRequestsTotal.WithLabelValues(moduleName).Inc()
	}
}
