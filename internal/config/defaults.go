package config

import "github.com/spf13/viper"

// setDefaults sets the factory defaults.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	// Database defaults
	v.SetDefault("database.path", "data/accounts.dat")
	v.SetDefault("database.spool_path", "data/verification_queue.dat")

	// Approval defaults
	v.SetDefault("approval.wait_timeout", "30s")

	// Audit index defaults (off unless asked for)
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.path", "data/audit.db")

	// Decision archive defaults
	v.SetDefault("decision_log.enabled", false)
	v.SetDefault("decision_log.path", "data/decisions")
}
