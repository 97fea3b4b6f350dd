package config

import (
	"errors"

	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	LLM struct {
		APIKey    string `mapstructure:"api_key"`
		BaseURL   string `mapstructure:"base_url"`
		Model     string `mapstructure:"model"`
		MaxTokens int    `mapstructure:"max_tokens"`
	} `mapstructure:"llm"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
}

// LoadConfig loads the configuration from a file and the environment.
// configFile, when non-empty, overrides the default search path.
func LoadConfig(configFile string) (*Config, error) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}
	viper.SetEnvPrefix("scribeflow")
	viper.AutomaticEnv()

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("db.sslmode", "disable")
	viper.SetDefault("llm.model", "gpt-4o")
	viper.SetDefault("llm.max_tokens", 8192)

	if err := viper.ReadInConfig(); err != nil {
		// env plus defaults is a valid configuration; only an explicitly
		// requested file is required to exist
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
