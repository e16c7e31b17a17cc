package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Service         ServiceConfig        `mapstructure:"service"`
	Logging         LoggingConfig        `mapstructure:"logging"`
	Databases       DatabasesConfig      `mapstructure:"databases"`
	ExternalClients ExternalClientConfig `mapstructure:"externalClients"`
	Reconciler      ReconcilerConfig     `mapstructure:"reconciler"`
}

type ServiceType string

const (
	API    ServiceType = "API"
	WORKER ServiceType = "WORKER"
)

type ServiceConfig struct {
	Type ServiceType `mapstructure:"type"`
	Port string      `mapstructure:"port"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	ToFile   bool   `mapstructure:"toFile"`
	FilePath string `mapstructure:"filePath"`
}

type DatabasesConfig struct {
	SQL SQLConfig `mapstructure:"sql"`
}

type SQLConfig struct {
	Host             string `mapstructure:"host"`
	Port             string `mapstructure:"port"`
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	Driver           string `mapstructure:"driver"`
	Database         string `mapstructure:"database"`
	ConnectionString string `mapstructure:"connection_string"`
}

// DSN builds a postgres connection string unless an explicit one is configured.
func (c SQLConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.Host, c.Username, c.Password, c.Database, c.Port)
}

type ExternalClientConfig struct {
	Quotes QuotesConfig `mapstructure:"quotes"`
}

type QuotesConfig struct {
	BaseURL        string `mapstructure:"baseUrl"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
}

type ReconcilerConfig struct {
	// RepairOnStart triggers a full balance repair sweep when the worker boots.
	RepairOnStart bool `mapstructure:"repairOnStart"`
	// CronSpec schedules periodic sweeps; empty disables them.
	CronSpec string `mapstructure:"cronSpec"`
}

// LoadConfig reads appsettings.yaml (or appsettings.<ENV>.yaml when env is set)
// from the given directory.
func LoadConfig(path, env string) (*Config, error) {
	var cfg Config

	viper.AddConfigPath(path)
	name := "appsettings"
	if env != "" {
		name = fmt.Sprintf("appsettings.%s", env)
	}
	viper.SetConfigName(name)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}
	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
