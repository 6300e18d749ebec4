package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration of the API process. Each field maps
// to one environment variable.
type Config struct {
	Env            string   // APP_ENV (dev, test, prod)
	Port           string   // APP_PORT
	DBUser         string   // DB_USER
	DBPass         string   // DB_PASS (may be empty)
	DBHost         string   // DB_HOST
	DBPort         string   // DB_PORT
	DBName         string   // DB_NAME
	DBAutoMigrate  bool     // DB_AUTO_MIGRATE creates missing tables at startup
	JWTSecret      string   // JWT_SECRET signs access tokens
	AccessTTLMin   int      // ACCESS_TOKEN_TTL_MIN
	RefreshTTLDays int      // REFRESH_TOKEN_TTL_DAYS
	BcryptCost     int      // BCRYPT_COST
	CORSOrigins    []string // CORS_ORIGINS, comma separated
}

// AccessTTL is the lifetime of an access token.
func (c Config) AccessTTL() time.Duration { return time.Duration(c.AccessTTLMin) * time.Minute }

// RefreshTTL is the lifetime of a refresh token.
func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLDays) * 24 * time.Hour
}

// Load reads the process environment, after merging an optional .env file
// (ENV_FILE, default ".env"). Missing required keys are fatal.
func Load() Config {
	LoadDotEnv()
	return Config{
		Env:            getenv("APP_ENV", "dev"),
		Port:           getenv("APP_PORT", "3001"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         getenv("DB_PORT", "3306"),
		DBName:         must("DB_NAME"),
		DBAutoMigrate:  envBool("DB_AUTO_MIGRATE", false),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     envInt("BCRYPT_COST", 10),
		CORSOrigins:    splitList(getenv("CORS_ORIGINS", "*")),
	}
}

// LoadDotEnv merges ENV_FILE into the environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv() {
	path := getenv("ENV_FILE", ".env")
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Printf("config: could not read %s: %v", path, err)
	}
}

// must returns a required variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is must for integers.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
