package sysconfig

// Process environment and bootstrap layout.
const (
	EnvConfigDir  = "TIDEWIRE_CONFIG_DIR"
	BootstrapFile = "tidewire_bootstrap.properties"
)

// Configuration keys. Every recognized key starts with KeyPrefix.
const (
	KeyPrefix = "tidewire."

	// KeyConfigProvider is read from the bootstrap file only.
	KeyConfigProvider = KeyPrefix + "config.provider"

	LogPrefix = KeyPrefix + "log."

	RepositoryPrefix             = KeyPrefix + "repository."
	RepositorySuffixProvider     = "provider"
	RepositorySuffixCreateSchema = "create.schema"
	RepositorySuffixJDBCURL      = "jdbc.url"
	RepositorySuffixJDBCDriver   = "jdbc.driver"
	RepositorySuffixJDBCUser     = "jdbc.user"
	RepositorySuffixJDBCPassword = "jdbc.password"
	RepositorySuffixJDBCProps    = "jdbc.properties."

	KeyConnectorPath = KeyPrefix + "connector.path"
)
