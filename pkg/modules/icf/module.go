package icf

import (
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/clinref/icf-mcp-server/pkg/whoapi"
)

// Config contains ICF module configuration
type Config struct {
	ClientID     string      `mapstructure:"client_id" json:"client_id" yaml:"client_id"`
	ClientSecret string      `mapstructure:"client_secret" json:"client_secret" yaml:"client_secret"`
	Release      string      `mapstructure:"release" json:"release" yaml:"release"`
	Language     string      `mapstructure:"language" json:"language" yaml:"language"`
	Timeout      int         `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
	Tools        ToolsConfig `mapstructure:"tools" json:"tools" yaml:"tools"`
}

// ToolsConfig contains tools configuration
type ToolsConfig struct {
	Prefix string `mapstructure:"prefix" json:"prefix" yaml:"prefix"`
	Suffix string `mapstructure:"suffix" json:"suffix" yaml:"suffix"`
}

// Module exposes the WHO ICF classification as MCP tools.
type Module struct {
	config *Config
	logger *zap.Logger
	client *whoapi.Client
}

// New creates the ICF module and the WHO API client every handler shares.
// The client is owned by the module; nothing here is process-global.
func New(config *Config, logger *zap.Logger) (*Module, error) {
	if config == nil {
		return nil, fmt.Errorf("icf config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := 15 * time.Second
	if config.Timeout > 0 {
		timeout = time.Duration(config.Timeout) * time.Second
	}

	client := whoapi.NewClient(whoapi.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Release:      config.Release,
		Language:     config.Language,
		Timeout:      timeout,
	}, logger)

	m := &Module{
		config: config,
		logger: logger.Named("icf"),
		client: client,
	}

	credentialsConfigured := config.ClientID != "" && config.ClientSecret != ""
	if !credentialsConfigured {
		m.logger.Warn("WHO ICD credentials not configured, API-backed tools will fail until WHO_ICD_CLIENT_ID and WHO_ICD_CLIENT_SECRET are set")
	}

	m.logger.Info("ICF module created",
		zap.String("release", client.Release()),
		zap.Int("timeout_seconds", int(timeout.Seconds())),
		zap.Bool("credentials_configured", credentialsConfigured))

	return m, nil
}

// GetTools returns all MCP tools for the ICF module
func (m *Module) GetTools() []server.ServerTool {
	toolsConfig := GetDefaultToolsConfig()
	return m.BuildTools(toolsConfig)
}

// BuildToolName builds tool name based on configuration
func (m *Module) BuildToolName(baseName string) string {
	toolName := baseName
	if m.config.Tools.Prefix != "" {
		toolName = m.config.Tools.Prefix + toolName
	}
	if m.config.Tools.Suffix != "" {
		toolName = toolName + m.config.Tools.Suffix
	}
	return toolName
}

// BuildTools builds tool list based on configuration
func (m *Module) BuildTools(toolsConfig ICFToolsConfig) []server.ServerTool {
	var tools []server.ServerTool

	if toolsConfig.Lookup.Enabled {
		tools = append(tools, server.ServerTool{
			Tool:    m.buildLookupToolDefinition(toolsConfig.Lookup),
			Handler: m.handleLookup,
		})
	}

	if toolsConfig.Search.Enabled {
		tools = append(tools, server.ServerTool{
			Tool:    m.buildSearchToolDefinition(toolsConfig.Search),
			Handler: m.handleSearch,
		})
	}

	if toolsConfig.BrowseCategory.Enabled {
		tools = append(tools, server.ServerTool{
			Tool:    m.buildBrowseCategoryToolDefinition(toolsConfig.BrowseCategory),
			Handler: m.handleBrowseCategory,
		})
	}

	if toolsConfig.GetChildren.Enabled {
		tools = append(tools, server.ServerTool{
			Tool:    m.buildGetChildrenToolDefinition(toolsConfig.GetChildren),
			Handler: m.handleGetChildren,
		})
	}

	if toolsConfig.ExplainQualifier.Enabled {
		tools = append(tools, server.ServerTool{
			Tool:    m.buildExplainQualifierToolDefinition(toolsConfig.ExplainQualifier),
			Handler: m.handleExplainQualifier,
		})
	}

	if toolsConfig.Overview.Enabled {
		tools = append(tools, server.ServerTool{
			Tool:    m.buildOverviewToolDefinition(toolsConfig.Overview),
			Handler: m.handleOverview,
		})
	}

	return tools
}
