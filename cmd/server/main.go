package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/clinref/icf-mcp-server/cmd/version"
	"github.com/clinref/icf-mcp-server/pkg/config"
	"github.com/clinref/icf-mcp-server/pkg/metrics"
	icfModule "github.com/clinref/icf-mcp-server/pkg/modules/icf"
	httpserver "github.com/clinref/icf-mcp-server/pkg/server"
)

var (
	cfgFile string
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "icf-mcp-server",
	Short: "ICF MCP Server - WHO ICF classification tools over MCP",
	Long:  `An MCP server exposing the WHO International Classification of Functioning, Disability and Health (ICF) as tools: code lookup, full text search, category browsing and qualifier reference.`,
	Run:   runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Configuration flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is configs/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("host", "0.0.0.0", "Server host")
	rootCmd.PersistentFlags().Int("port", 3000, "Server port")
	rootCmd.PersistentFlags().String("mode", "stdio", "Server mode: stdio or sse")

	rootCmd.PersistentFlags().Bool("enable-icf", true, "Enable ICF module")

	// Bind flags to viper with unique keys
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("server.host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("server.port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("server.mode", rootCmd.PersistentFlags().Lookup("mode"))
	viper.BindPFlag("cli.icf.enabled", rootCmd.PersistentFlags().Lookup("enable-icf"))

	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	// Credentials commonly live in a .env file during development.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	// Initialize logger. Logs go to stderr so stdio mode keeps stdout
	// clean for the MCP protocol.
	var err error
	logLevel := viper.GetString("log_level")
	switch logLevel {
	case "debug":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
}

func runServer(cmd *cobra.Command, args []string) {
	defer logger.Sync()

	// Load configuration
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Fatal("Failed to unmarshal config", zap.Error(err))
	}
	if err := cfg.ApplyEnv(); err != nil {
		logger.Fatal("Failed to apply environment overrides", zap.Error(err))
	}

	// Override module enablement with CLI flags if provided
	if viper.IsSet("cli.icf.enabled") {
		cfg.ICF.Enabled = viper.GetBool("cli.icf.enabled")
	}

	// Get server mode - CLI flag takes precedence over config file
	serverMode := cfg.Server.Mode
	if viper.IsSet("server.mode") {
		serverMode = viper.GetString("server.mode")
	}
	if serverMode == "" {
		serverMode = "stdio"
	}
	cfg.Server.Mode = serverMode

	logger.Info("Starting ICF MCP Server",
		zap.String("version", version.Short()),
		zap.String("mode", serverMode),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("icf_enabled", cfg.ICF.Enabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.Init(logger)
	buildInfo := version.Get()
	metrics.SetBuildInfo(buildInfo.Version, buildInfo.GitCommit, buildInfo.BuildDate)
	metrics.StartSystemMetricsCollector(ctx, logger)

	// Create MCP server
	mcpServer := mcpserver.NewMCPServer("icf-mcp-server", buildInfo.Version)

	// Register modules based on configuration
	var toolCount int

	if cfg.ICF.Enabled {
		module, err := icfModule.New(buildICFConfig(&cfg), logger)
		if err != nil {
			logger.Fatal("Failed to create ICF module", zap.Error(err))
		}
		icfTools := module.GetTools()
		for _, serverTool := range icfTools {
			handler := metrics.WrapToolHandler(serverTool.Handler, serverTool.Tool.Name, "icf")
			mcpServer.AddTool(serverTool.Tool, handler)
			toolCount++
		}
		logger.Info("ICF module enabled", zap.Int("tools", len(icfTools)))
	}
	m.SetModuleEnabled("icf", cfg.ICF.Enabled)

	if toolCount == 0 {
		logger.Warn("No modules enabled, server will have no tools available")
	} else {
		logger.Info("Server initialized", zap.Int("total_tools", toolCount))
	}

	// Start server based on mode
	switch serverMode {
	case "stdio":
		logger.Info("Starting server in stdio mode")
		if err := mcpserver.ServeStdio(mcpServer); err != nil {
			logger.Fatal("Stdio server failed", zap.Error(err))
		}
	case "sse":
		streamableServer := mcpserver.NewStreamableHTTPServer(mcpServer)
		srv := httpserver.New(&cfg, logger, streamableServer)

		logger.Info("Starting server in SSE mode",
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
		)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				logger.Fatal("SSE server failed", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Shutdown error", zap.Error(err))
			}
		}
	default:
		logger.Fatal("Invalid server mode", zap.String("mode", serverMode), zap.Strings("valid_modes", []string{"stdio", "sse"}))
	}
}

func buildICFConfig(cfg *config.Config) *icfModule.Config {
	icfConfig := &icfModule.Config{
		Tools: icfModule.ToolsConfig{
			Prefix: cfg.ICF.Tools.Prefix,
			Suffix: cfg.ICF.Tools.Suffix,
		},
	}
	if cfg.ICF.WHO != nil {
		icfConfig.ClientID = cfg.ICF.WHO.ClientID
		icfConfig.ClientSecret = cfg.ICF.WHO.ClientSecret
		icfConfig.Release = cfg.ICF.WHO.Release
		icfConfig.Language = cfg.ICF.WHO.Language
		icfConfig.Timeout = cfg.ICF.WHO.Timeout
	}
	return icfConfig
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
