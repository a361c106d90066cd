package docs

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"go.uber.org/zap"

	"github.com/clinref/icf-mcp-server/cmd/version"
	"github.com/clinref/icf-mcp-server/pkg/config"
	icfModule "github.com/clinref/icf-mcp-server/pkg/modules/icf"
	"github.com/clinref/icf-mcp-server/pkg/whoapi"
)

// Collector collects tool information from enabled modules
type Collector struct {
	config *config.Config
	logger *zap.Logger
}

// NewCollector creates a new docs collector
func NewCollector(cfg *config.Config, logger *zap.Logger) *Collector {
	return &Collector{
		config: cfg,
		logger: logger,
	}
}

// CollectToolsInfo collects tool information from all enabled modules
func (c *Collector) CollectToolsInfo() ToolsInfoResponse {
	var tools []ToolInfo
	var enabledModules []string
	totalTools := 0

	versionInfo := version.Get()

	if c.config.ICF.Enabled {
		enabledModules = append(enabledModules, "icf")
		icfTools := c.collectICFTools()
		tools = append(tools, icfTools...)
		totalTools += len(icfTools)
	}

	return ToolsInfoResponse{
		Service:    "icf-mcp-server",
		Version:    versionInfo.Version,
		TotalTools: totalTools,
		Modules:    enabledModules,
		Tools:      tools,
		Records:    collectRecordDocs(),
	}
}

// collectICFTools collects tools from the ICF module
func (c *Collector) collectICFTools() []ToolInfo {
	var tools []ToolInfo

	icfConfig := &icfModule.Config{
		Tools: icfModule.ToolsConfig{
			Prefix: c.config.ICF.Tools.Prefix,
			Suffix: c.config.ICF.Tools.Suffix,
		},
	}
	if c.config.ICF.WHO != nil {
		icfConfig.ClientID = c.config.ICF.WHO.ClientID
		icfConfig.ClientSecret = c.config.ICF.WHO.ClientSecret
		icfConfig.Release = c.config.ICF.WHO.Release
		icfConfig.Language = c.config.ICF.WHO.Language
		icfConfig.Timeout = c.config.ICF.WHO.Timeout
	}

	icfModuleInstance, err := icfModule.New(icfConfig, c.logger)
	if err != nil {
		c.logger.Error("Failed to create ICF module for docs", zap.Error(err))
		return tools
	}

	for _, serverTool := range icfModuleInstance.GetTools() {
		toolInfo := ToolInfo{
			Name:        serverTool.Tool.Name,
			Description: serverTool.Tool.Description,
			Parameters:  convertToolParameters(serverTool.Tool.InputSchema),
			Module:      "icf",
		}
		tools = append(tools, toolInfo)
	}

	return tools
}

// collectRecordDocs reflects JSON schemas for the record types the tools return
func collectRecordDocs() []RecordDoc {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return []RecordDoc{
		{Name: "Entity", Schema: reflector.Reflect(&whoapi.Entity{})},
		{Name: "SearchResult", Schema: reflector.Reflect(&whoapi.SearchResult{})},
		{Name: "CategoryView", Schema: reflector.Reflect(&whoapi.CategoryView{})},
		{Name: "QualifierInfo", Schema: reflector.Reflect(&icfModule.QualifierInfo{})},
	}
}

// convertToolParameters converts MCP tool input schema to a more readable format
func convertToolParameters(inputSchema interface{}) map[string]interface{} {
	params := make(map[string]interface{})

	// Convert the inputSchema to JSON first, then parse it as a map
	schemaBytes, err := json.Marshal(inputSchema)
	if err != nil {
		return params
	}

	var schemaMap map[string]interface{}
	if err := json.Unmarshal(schemaBytes, &schemaMap); err != nil {
		return params
	}

	if properties, exists := schemaMap["properties"]; exists {
		if propsMap, ok := properties.(map[string]interface{}); ok {
			for paramName, paramDef := range propsMap {
				if paramDefMap, ok := paramDef.(map[string]interface{}); ok {
					paramInfo := map[string]interface{}{
						"type": paramDefMap["type"],
					}

					if description, exists := paramDefMap["description"]; exists {
						paramInfo["description"] = description
					}

					// Check if parameter is required
					if required, exists := schemaMap["required"]; exists {
						if requiredList, ok := required.([]interface{}); ok {
							for _, req := range requiredList {
								if reqStr, ok := req.(string); ok && reqStr == paramName {
									paramInfo["required"] = true
									break
								}
							}
						}
					}

					params[paramName] = paramInfo
				}
			}
		}
	}

	return params
}
