package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serverURL    string
	outputFormat string
	cfgFile      string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cortex",
	Short: "CLI for the Cortex job orchestration service",
	Long:  `cortex is a command line interface for submitting and tracking compute jobs across decentralized provider networks.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cortex/config)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "cortexd API URL (default from config or http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}
		configDir := filepath.Join(home, ".cortex")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()
	viper.BindEnv("server_url", "CORTEX_SERVER_URL")

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetString("server_url") != "" && serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
	}
	if serverURL == "" && viper.GetString("server_url") != "" {
		serverURL = viper.GetString("server_url")
	}
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
}

// ServerURL returns the configured API URL with trailing slashes removed
func ServerURL() string {
	return strings.TrimRight(serverURL, "/")
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

// apiRequest performs a request against cortexd and decodes the JSON
// response into out when the status matches wantStatus.
func apiRequest(method, path string, body io.Reader, wantStatus int, out interface{}) error {
	req, err := http.NewRequest(method, ServerURL()+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != wantStatus {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// printJSON writes v as indented JSON to stdout
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
