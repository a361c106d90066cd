package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents the complete server configuration
type Config struct {
	Log    LogConfig    `mapstructure:"log" json:"log" yaml:"log"`
	Server ServerConfig `mapstructure:"server" json:"server" yaml:"server"`
	ICF    ICFConfig    `mapstructure:"icf" json:"icf" yaml:"icf"`
	SSE    SSEConfig    `mapstructure:"sse" json:"sse" yaml:"sse"`
	Auth   AuthConfig   `mapstructure:"auth" json:"auth" yaml:"auth"`
}

// ToolsConfig contains tools configuration
type ToolsConfig struct {
	Prefix string `mapstructure:"prefix" json:"prefix" yaml:"prefix"`
	Suffix string `mapstructure:"suffix" json:"suffix" yaml:"suffix"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string `mapstructure:"level" json:"level" yaml:"level"`
}

// ServerConfig contains server configuration
type ServerConfig struct {
	Host string `mapstructure:"host" json:"host" yaml:"host"`
	Port int    `mapstructure:"port" json:"port" yaml:"port"`
	Mode string `mapstructure:"mode" json:"mode" yaml:"mode"`
}

// WHOConfig contains WHO ICD-API credentials and request settings.
// The env tags let credentials come from the environment so they can
// stay out of config files.
type WHOConfig struct {
	ClientID     string `mapstructure:"clientId" json:"clientId" yaml:"clientId" env:"WHO_ICD_CLIENT_ID"`
	ClientSecret string `mapstructure:"clientSecret" json:"clientSecret" yaml:"clientSecret" env:"WHO_ICD_CLIENT_SECRET"`
	Release      string `mapstructure:"release" json:"release" yaml:"release" env:"WHO_ICD_RELEASE"`
	Language     string `mapstructure:"language" json:"language" yaml:"language" env:"WHO_ICD_LANGUAGE"`
	Timeout      int    `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
}

// ICFConfig contains ICF module configuration
type ICFConfig struct {
	Enabled bool        `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Tools   ToolsConfig `mapstructure:"tools" json:"tools" yaml:"tools"`
	WHO     *WHOConfig  `mapstructure:"who" json:"who" yaml:"who"`
}

// SSEConfig contains SSE configuration
type SSEConfig struct {
	KeepAlive      time.Duration `mapstructure:"keepAlive" json:"keepAlive" yaml:"keepAlive"`
	MaxConnections int           `mapstructure:"maxConnections" json:"maxConnections" yaml:"maxConnections"`
}

// AuthConfig contains authentication configuration
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Token   string `mapstructure:"token" json:"token" yaml:"token" env:"MCP_AUTH_TOKEN"`
}

// ApplyEnv overlays environment variables onto the configuration.
// Set variables win over config file values; unset ones leave the
// file values in place.
func (c *Config) ApplyEnv() error {
	if c.ICF.WHO == nil {
		c.ICF.WHO = &WHOConfig{}
	}
	if err := env.Parse(c.ICF.WHO); err != nil {
		return err
	}
	return env.Parse(&c.Auth)
}
