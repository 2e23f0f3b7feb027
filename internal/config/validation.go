package config

import "fmt"

// ValidateConfig checks the complete configuration for values the
// server cannot run with.
func ValidateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}
	if err := validateDatabaseConfig(&config.Database); err != nil {
		return fmt.Errorf("database config validation failed: %w", err)
	}
	if err := validateApprovalConfig(&config.Approval); err != nil {
		return fmt.Errorf("approval config validation failed: %w", err)
	}
	if config.Audit.Enabled && config.Audit.Path == "" {
		return fmt.Errorf("audit.path must be set when audit is enabled")
	}
	if config.DecisionLog.Enabled && config.DecisionLog.Path == "" {
		return fmt.Errorf("decision_log.path must be set when the decision log is enabled")
	}
	return nil
}

func validateServerConfig(server *ServerConfig) error {
	if server.Port < 1 || server.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", server.Port)
	}
	if server.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	return nil
}

func validateDatabaseConfig(db *DatabaseConfig) error {
	if db.Path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if db.SpoolPath == "" {
		return fmt.Errorf("spool_path cannot be empty")
	}
	return nil
}

func validateApprovalConfig(approval *ApprovalConfig) error {
	if approval.WaitTimeout <= 0 {
		return fmt.Errorf("wait_timeout must be positive, got %s", approval.WaitTimeout)
	}
	return nil
}
