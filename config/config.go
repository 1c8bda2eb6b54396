package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Configuration struct {
	BaseDN        string
	DcFQDN        string
	Username      string
	Password      string
	PageSize      uint32
	WinRMUsername string
	WinRMPassword string
	WinRMPort     int
	DatabaseURL   string
}

const (
	defaultPageSize  = 1000
	defaultWinRMPort = 5985
)

// LoadEnvConfig reads settings from the given env file. A missing file is not
// an error: values already present in the process environment still apply.
func LoadEnvConfig(configName string) (Configuration, error) {
	if _, err := os.Stat(configName); err == nil {
		if err := godotenv.Load(configName); err != nil {
			return Configuration{}, fmt.Errorf("loading %s: %w", configName, err)
		}
	}

	cfg := Configuration{
		BaseDN:        os.Getenv("LDAP_BASEDN"),
		DcFQDN:        os.Getenv("LDAP_DCFQDN"),
		Username:      os.Getenv("LDAP_USERNAME"),
		Password:      os.Getenv("LDAP_PASSWORD"),
		PageSize:      defaultPageSize,
		WinRMUsername: os.Getenv("WINRM_USERNAME"),
		WinRMPassword: os.Getenv("WINRM_PASSWORD"),
		WinRMPort:     defaultWinRMPort,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
	}

	if cfg.DcFQDN == "" {
		return Configuration{}, fmt.Errorf("LDAP_DCFQDN is required")
	}

	if raw := os.Getenv("LDAP_PAGESIZE"); raw != "" {
		pageSize, err := strconv.Atoi(raw)
		if err != nil {
			return Configuration{}, fmt.Errorf("failed to parse LDAP_PAGESIZE: %w", err)
		}
		if pageSize <= 0 {
			return Configuration{}, fmt.Errorf("LDAP_PAGESIZE must be positive, got %d", pageSize)
		}
		cfg.PageSize = uint32(pageSize)
	}

	if raw := os.Getenv("WINRM_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return Configuration{}, fmt.Errorf("failed to parse WINRM_PORT: %w", err)
		}
		if port < 1 || port > 65535 {
			return Configuration{}, fmt.Errorf("WINRM_PORT %d out of range", port)
		}
		cfg.WinRMPort = port
	}

	return cfg, nil
}
