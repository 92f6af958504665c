package config

import (
	"os"
	"testing"
	"time"
)

func setEnvVars(vars map[string]string) {
	for k, v := range vars {
		os.Setenv(k, v)
	}
}

func clearEnvVars(vars []string) {
	for _, k := range vars {
		os.Unsetenv(k)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	envVars := []string{
		"HOST", "PORT", "READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "ENVIRONMENT",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSL_MODE",
		"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "DB_CONN_MAX_IDLE_TIME",
		"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB", "REDIS_POOL_SIZE",
		"REDIS_MIN_IDLE_CONNS", "REDIS_MAX_RETRIES", "REDIS_DIAL_TIMEOUT", "REDIS_READ_TIMEOUT", "REDIS_WRITE_TIMEOUT",
		"WORKER_CONCURRENCY", "WORKER_POLL_INTERVAL",
		"JWT_SECRET", "JWT_ISSUER", "DB_DRIVER", "ALLOWED_ORIGINS",
		"RATE_LIMIT_ENABLED", "RATE_LIMIT_RPM", "RATE_LIMIT_BURST", "RATE_LIMIT_CLEANUP",
		"BOARD_MIN_COLUMNS", "BOARD_MAX_COLUMNS", "BOARD_REORDER_ATTEMPTS", "BOARD_REORDER_RETRY_DELAY",
	}
	clearEnvVars(envVars)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error with default config, got: %v", err)
	}

	if config.Server.Host != "localhost" {
		t.Errorf("Expected default host 'localhost', got %s", config.Server.Host)
	}

	if config.Server.Port != "8080" {
		t.Errorf("Expected default port '8080', got %s", config.Server.Port)
	}

	if config.Server.Environment != "development" {
		t.Errorf("Expected default environment 'development', got %s", config.Server.Environment)
	}

	if config.Database.Host != "localhost" {
		t.Errorf("Expected default DB host 'localhost', got %s", config.Database.Host)
	}

	if config.Database.Port != "5432" {
		t.Errorf("Expected default DB port '5432', got %s", config.Database.Port)
	}

	if config.Database.User != "postgres" {
		t.Errorf("Expected default DB user 'postgres', got %s", config.Database.User)
	}

	if config.Database.Name != "taskboard" {
		t.Errorf("Expected default DB name 'taskboard', got %s", config.Database.Name)
	}

	if config.Database.Driver != "postgres" {
		t.Errorf("Expected default DB driver 'postgres', got %s", config.Database.Driver)
	}

	if config.Database.MaxOpenConns != 25 {
		t.Errorf("Expected default max open conns 25, got %d", config.Database.MaxOpenConns)
	}

	if config.Redis.Host != "localhost" {
		t.Errorf("Expected default Redis host 'localhost', got %s", config.Redis.Host)
	}

	if config.Redis.Port != "6379" {
		t.Errorf("Expected default Redis port '6379', got %s", config.Redis.Port)
	}

	if config.Redis.DB != 0 {
		t.Errorf("Expected default Redis DB 0, got %d", config.Redis.DB)
	}

	if config.Redis.PoolSize != 10 {
		t.Errorf("Expected default Redis pool size 10, got %d", config.Redis.PoolSize)
	}

	if config.Worker.Concurrency != 2 {
		t.Errorf("Expected default worker concurrency 2, got %d", config.Worker.Concurrency)
	}

	if len(config.Worker.Queues) != 1 || config.Worker.Queues[0] != "board_maintenance" {
		t.Errorf("Expected default queue board_maintenance, got %v", config.Worker.Queues)
	}

	if config.Auth.Issuer != "taskboard-backend" {
		t.Errorf("Expected default issuer 'taskboard-backend', got %s", config.Auth.Issuer)
	}

	if config.Board.MinColumns != 2 || config.Board.MaxColumns != 4 {
		t.Errorf("Expected column bounds [2, 4], got [%d, %d]", config.Board.MinColumns, config.Board.MaxColumns)
	}

	if config.Board.ReorderAttempts != 3 {
		t.Errorf("Expected 3 reorder attempts, got %d", config.Board.ReorderAttempts)
	}

	if config.Board.ReorderRetryDelay != time.Second {
		t.Errorf("Expected 1s reorder retry delay, got %v", config.Board.ReorderRetryDelay)
	}

	if !config.RateLimit.Enabled {
		t.Error("Expected rate limiting to be enabled by default")
	}

	if config.RateLimit.RequestsPerMin != 300 {
		t.Errorf("Expected default requests per minute 300, got %d", config.RateLimit.RequestsPerMin)
	}
}

func TestLoadConfig_CustomEnvironment(t *testing.T) {
	envVars := map[string]string{
		"HOST":               "0.0.0.0",
		"PORT":               "9000",
		"ENVIRONMENT":        "production",
		"DB_HOST":            "db.example.com",
		"DB_PORT":            "5433",
		"DB_USER":            "app_user",
		"DB_PASSWORD":        "secure_password",
		"DB_NAME":            "production_db",
		"DB_MAX_OPEN_CONNS":  "50",
		"REDIS_HOST":         "redis.example.com",
		"REDIS_PORT":         "6380",
		"REDIS_PASSWORD":     "redis_pass",
		"REDIS_DB":           "1",
		"WORKER_CONCURRENCY": "8",
		"JWT_SECRET":         "super-secret-key",
		"RATE_LIMIT_ENABLED": "false",
		"RATE_LIMIT_RPM":     "200",
		"READ_TIMEOUT":       "45s",
		"WRITE_TIMEOUT":      "45s",
		"ALLOWED_ORIGINS":    "https://board.example.com, https://admin.example.com",
		"BOARD_MAX_COLUMNS":  "6",
	}

	setEnvVars(envVars)
	defer func() {
		var keys []string
		for k := range envVars {
			keys = append(keys, k)
		}
		clearEnvVars(keys)
	}()

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error with custom config, got: %v", err)
	}

	if config.Server.Host != "0.0.0.0" {
		t.Errorf("Expected host '0.0.0.0', got %s", config.Server.Host)
	}

	if config.Server.Port != "9000" {
		t.Errorf("Expected port '9000', got %s", config.Server.Port)
	}

	if config.Server.Environment != "production" {
		t.Errorf("Expected environment 'production', got %s", config.Server.Environment)
	}

	if config.Database.Host != "db.example.com" {
		t.Errorf("Expected DB host 'db.example.com', got %s", config.Database.Host)
	}

	if config.Database.Password != "secure_password" {
		t.Errorf("Expected DB password 'secure_password', got %s", config.Database.Password)
	}

	if config.Database.MaxOpenConns != 50 {
		t.Errorf("Expected max open conns 50, got %d", config.Database.MaxOpenConns)
	}

	if config.Redis.Host != "redis.example.com" {
		t.Errorf("Expected Redis host 'redis.example.com', got %s", config.Redis.Host)
	}

	if config.Redis.DB != 1 {
		t.Errorf("Expected Redis DB 1, got %d", config.Redis.DB)
	}

	if config.Worker.Concurrency != 8 {
		t.Errorf("Expected worker concurrency 8, got %d", config.Worker.Concurrency)
	}

	if config.Auth.JWTSecret != "super-secret-key" {
		t.Errorf("Expected JWT secret 'super-secret-key', got %s", config.Auth.JWTSecret)
	}

	if config.RateLimit.Enabled {
		t.Error("Expected rate limiting to be disabled")
	}

	if config.RateLimit.RequestsPerMin != 200 {
		t.Errorf("Expected requests per minute 200, got %d", config.RateLimit.RequestsPerMin)
	}

	if config.Server.ReadTimeout != 45*time.Second {
		t.Errorf("Expected read timeout 45s, got %v", config.Server.ReadTimeout)
	}

	if len(config.Server.AllowedOrigins) != 2 || config.Server.AllowedOrigins[1] != "https://admin.example.com" {
		t.Errorf("Expected two trimmed origins, got %v", config.Server.AllowedOrigins)
	}

	if config.Board.MaxColumns != 6 {
		t.Errorf("Expected max columns 6, got %d", config.Board.MaxColumns)
	}
}

func TestLoadConfig_ProductionValidation(t *testing.T) {
	envVars := map[string]string{
		"ENVIRONMENT": "production",
		"JWT_SECRET":  "secure-jwt-secret",
	}

	setEnvVars(envVars)
	defer func() {
		var keys []string
		for k := range envVars {
			keys = append(keys, k)
		}
		clearEnvVars(keys)
	}()

	_, err := LoadConfig()
	if err == nil {
		t.Error("Expected error for missing database password in production")
	}

	if err.Error() != "database password is required in production" {
		t.Errorf("Expected specific error message, got: %v", err)
	}
}

func TestLoadConfig_ProductionJWTValidation(t *testing.T) {
	envVars := map[string]string{
		"ENVIRONMENT": "production",
		"DB_PASSWORD": "secure-db-password",
	}

	setEnvVars(envVars)
	defer func() {
		var keys []string
		for k := range envVars {
			keys = append(keys, k)
		}
		clearEnvVars(keys)
	}()

	_, err := LoadConfig()
	if err == nil {
		t.Error("Expected error for default JWT secret in production")
	}

	if err.Error() != "JWT secret must be set in production" {
		t.Errorf("Expected specific error message, got: %v", err)
	}
}

func TestConfig_GetDatabaseDSN(t *testing.T) {
	config := &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "testuser",
			Password: "testpass",
			Name:     "testdb",
			SSLMode:  "require",
		},
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=require"
	actual := config.GetDatabaseDSN()

	if actual != expected {
		t.Errorf("Expected DSN '%s', got '%s'", expected, actual)
	}
}

func TestConfig_GetDatabaseDSN_SQLite(t *testing.T) {
	config := &Config{
		Database: DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: "/tmp/board.db",
		},
	}

	if dsn := config.GetDatabaseDSN(); dsn != "/tmp/board.db" {
		t.Errorf("Expected sqlite path as DSN, got '%s'", dsn)
	}
}

func TestLoadConfig_InvalidBoardSettings(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
	}{
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql"}},
		{"inverted column bounds", map[string]string{"BOARD_MIN_COLUMNS": "5", "BOARD_MAX_COLUMNS": "3"}},
		{"zero reorder attempts", map[string]string{"BOARD_REORDER_ATTEMPTS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvVars(tt.envVars)
			defer func() {
				var keys []string
				for k := range tt.envVars {
					keys = append(keys, k)
				}
				clearEnvVars(keys)
			}()

			if _, err := LoadConfig(); err == nil {
				t.Error("Expected configuration error")
			}
		})
	}
}

func TestConfig_GetRedisAddr(t *testing.T) {
	config := &Config{
		Redis: RedisConfig{
			Host: "redis.example.com",
			Port: "6380",
		},
	}

	expected := "redis.example.com:6380"
	actual := config.GetRedisAddr()

	if actual != expected {
		t.Errorf("Expected Redis addr '%s', got '%s'", expected, actual)
	}
}

func TestConfig_GetServerAddr(t *testing.T) {
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "9000",
		},
	}

	expected := "0.0.0.0:9000"
	actual := config.GetServerAddr()

	if actual != expected {
		t.Errorf("Expected server addr '%s', got '%s'", expected, actual)
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		environment string
		expected    bool
	}{
		{"production", true},
		{"development", false},
		{"staging", false},
		{"test", false},
		{"", false},
	}

	for _, test := range tests {
		config := &Config{
			Server: ServerConfig{
				Environment: test.environment,
			},
		}

		actual := config.IsProduction()
		if actual != test.expected {
			t.Errorf("For environment '%s', expected IsProduction() = %v, got %v",
				test.environment, test.expected, actual)
		}
	}
}

func TestEnvGetters(t *testing.T) {
	t.Setenv("TEST_STRING", "custom")
	t.Setenv("TEST_INT", "100")
	t.Setenv("TEST_BAD_INT", "not-a-number")
	t.Setenv("TEST_DURATION", "5m")
	t.Setenv("TEST_BAD_DURATION", "soon")
	t.Setenv("TEST_LIST", " a, b ,,c ")

	if got := getEnv("TEST_STRING", "default"); got != "custom" {
		t.Errorf("getEnv: got %q", got)
	}
	if got := getEnv("TEST_UNSET", "default"); got != "default" {
		t.Errorf("getEnv default: got %q", got)
	}
	if got := getEnvAsInt("TEST_INT", 42); got != 100 {
		t.Errorf("getEnvAsInt: got %d", got)
	}
	if got := getEnvAsInt("TEST_BAD_INT", 42); got != 42 {
		t.Errorf("getEnvAsInt invalid: got %d", got)
	}
	if got := getEnvAsDuration("TEST_DURATION", time.Second); got != 5*time.Minute {
		t.Errorf("getEnvAsDuration: got %v", got)
	}
	if got := getEnvAsDuration("TEST_BAD_DURATION", time.Second); got != time.Second {
		t.Errorf("getEnvAsDuration invalid: got %v", got)
	}
	if got := getEnvAsList("TEST_LIST", nil); len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("getEnvAsList: got %v", got)
	}
	if got := getEnvAsList("TEST_UNSET", []string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Errorf("getEnvAsList default: got %v", got)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	cases := map[string]bool{
		"true":    true,
		"false":   false,
		"1":       true,
		"0":       false,
		"True":    true,
		"invalid": true,
	}
	for value, want := range cases {
		t.Setenv("TEST_BOOL", value)
		if got := getEnvAsBool("TEST_BOOL", true); got != want {
			t.Errorf("getEnvAsBool(%q) = %v, want %v", value, got, want)
		}
	}
}

func TestLoadConfig_DriverValidation(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")

	for driver, wantErr := range map[string]bool{"postgres": false, "sqlite": false, "mysql": true} {
		t.Setenv("DB_DRIVER", driver)
		_, err := LoadConfig()
		if (err != nil) != wantErr {
			t.Errorf("driver %s: err = %v, want error %v", driver, err, wantErr)
		}
	}
}

func TestLoadConfig_StagingIsNotProduction(t *testing.T) {
	t.Setenv("ENVIRONMENT", "staging")
	t.Setenv("JWT_SECRET", defaultJWTSecret)
	t.Setenv("DB_PASSWORD", "")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected staging to accept development defaults, got: %v", err)
	}
	if config.IsProduction() {
		t.Error("Expected staging not to count as production")
	}
}
