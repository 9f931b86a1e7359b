package config

// Recognized configuration keys.
const (
	KeyDatabaseType       = "DATABASE_TYPE"
	KeyDatabaseHost       = "DATABASE_HOST"
	KeyDatabasePort       = "DATABASE_PORT"
	KeyDatabaseName       = "DATABASE_NAME"
	KeyDatabaseUser       = "DATABASE_USER"
	KeyDatabasePassword   = "DATABASE_PASSWORD"
	KeyDatabaseSQLitePath = "DATABASE_SQLITE_PATH"

	KeyPortServiceGRPC = "PORT_SERVICE_GRPC"
	KeyPortServiceHTTP = "PORT_SERVICE_HTTP"
	KeyPortManage      = "PORT_MANAGE"
	KeyPortAux         = "PORT_AUX"

	KeyJWTAlgorithm       = "JWT_ALGORITHM"
	KeyJWTExpirationHours = "JWT_EXPIRATION_HOURS"
	KeyJWTSecretKey       = "JWT_SECRET_KEY"

	KeyManageUsername = "MANAGE_USERNAME"
	KeyManagePassword = "MANAGE_PASSWORD"

	KeySwitchTimeoutSec    = "SWITCH_TIMEOUT_SECONDS"
	KeyHealthProbeInterval = "HEALTH_PROBE_INTERVAL_SECONDS"
)

// DefaultSchema enumerates every key the server recognizes, with built-in
// defaults. The default backend is a local sqlite file; networked backends
// are added at runtime through the switchboard.
func DefaultSchema() []Field {
	return []Field{
		{Key: KeyDatabaseType, Type: String, Default: "sqlite"},
		{Key: KeyDatabaseHost, Type: String, Default: ""},
		{Key: KeyDatabasePort, Type: Int, Default: 0},
		{Key: KeyDatabaseName, Type: String, Default: ""},
		{Key: KeyDatabaseUser, Type: String, Default: ""},
		{Key: KeyDatabasePassword, Type: String, Default: ""},
		{Key: KeyDatabaseSQLitePath, Type: String, Default: "data/auth.db"},

		{Key: KeyPortServiceGRPC, Type: Int, Default: 16200},
		{Key: KeyPortServiceHTTP, Type: Int, Default: 16201},
		{Key: KeyPortManage, Type: Int, Default: 16202},
		{Key: KeyPortAux, Type: Int, Default: 16203},

		{Key: KeyJWTAlgorithm, Type: String, Default: "HS256"},
		{Key: KeyJWTExpirationHours, Type: Int, Default: 24},
		{Key: KeyJWTSecretKey, Type: String, Default: ""},

		{Key: KeyManageUsername, Type: String, Default: "root"},
		{Key: KeyManagePassword, Type: String, Default: "password"},

		{Key: KeySwitchTimeoutSec, Type: Int, Default: 5},
		{Key: KeyHealthProbeInterval, Type: Int, Default: 10},
	}
}
