package provider

import (
	"fmt"
	"net/url"
	"time"
)

// AkashConfig holds connection settings for the Akash network.
type AkashConfig struct {
	RPCEndpoint    string        `json:"rpc_endpoint" mapstructure:"rpc_endpoint"`
	APIEndpoint    string        `json:"api_endpoint" mapstructure:"api_endpoint"`
	ChainID        string        `json:"chain_id" mapstructure:"chain_id"`
	WalletMnemonic string        `json:"-" mapstructure:"wallet_mnemonic"`
	DefaultTimeout time.Duration `json:"default_timeout" mapstructure:"default_timeout"`
}

// Validate checks the configuration before a provider is constructed.
// A provider with a malformed config never reaches the registry.
func (c *AkashConfig) Validate() error {
	if c.RPCEndpoint == "" {
		return fmt.Errorf("akash config: rpc_endpoint is required")
	}
	if _, err := url.ParseRequestURI(c.RPCEndpoint); err != nil {
		return fmt.Errorf("akash config: invalid rpc_endpoint: %w", err)
	}
	if c.APIEndpoint == "" {
		return fmt.Errorf("akash config: api_endpoint is required")
	}
	if _, err := url.ParseRequestURI(c.APIEndpoint); err != nil {
		return fmt.Errorf("akash config: invalid api_endpoint: %w", err)
	}
	if c.ChainID == "" {
		return fmt.Errorf("akash config: chain_id is required")
	}
	if c.DefaultTimeout < 0 {
		return fmt.Errorf("akash config: default_timeout must not be negative")
	}
	return nil
}

// RenderConfig holds connection settings for the Render network.
type RenderConfig struct {
	APIEndpoint string        `json:"api_endpoint" mapstructure:"api_endpoint"`
	APIKey      string        `json:"-" mapstructure:"api_key"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
}

func (c *RenderConfig) Validate() error {
	if c.APIEndpoint == "" {
		return fmt.Errorf("render config: api_endpoint is required")
	}
	if _, err := url.ParseRequestURI(c.APIEndpoint); err != nil {
		return fmt.Errorf("render config: invalid api_endpoint: %w", err)
	}
	return nil
}
