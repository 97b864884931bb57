package config

// Default paths for databases
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./lendingdesk.db"

	// DefaultEnvFile is loaded before reading the environment when present
	DefaultEnvFile = ".env"
)

// Supported database drivers
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)
