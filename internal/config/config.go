package config // package config loads application configuration from environment variables

import (
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings"
    "time"
)

// Config holds the core runtime configuration.  Every field has a default so
// the service starts against a local MongoDB with no environment at all.
// Values are not validated here; a malformed URI surfaces when the
// connection is attempted.
type Config struct {
    Env        string // application environment (e.g. "dev", "production")
    Port       string // HTTP port to listen on, bound on all interfaces
    MongoURI   string // MongoDB connection string
    DBName     string // database name
    Collection string // collection holding the notes
}

// Load reads configuration values from environment variables and returns a
// Config, falling back to the defaults for unset or empty variables.
func Load() Config {
    return Config{
        Env:        envStr("APP_ENV", "dev"),                             // environment (dev/test/production)
        Port:       envStr("PORT", "8000"),                               // port to bind the HTTP server
        MongoURI:   envStr("MONGODB_URI", "mongodb://localhost:27017"),   // database server
        DBName:     envStr("DB_NAME", "keploydb"),                        // database name
        Collection: envStr("COLLECTION_NAME", "notes"),                   // collection name
    }
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string { return ":" + c.Port }

// Lookups shared by every loader in this package.  Unset, empty and
// unparsable values all fall back to the default.

func envStr(k, d string) string {
    if v, ok := os.LookupEnv(k); ok && v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    switch strings.ToLower(os.Getenv(k)) {
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    return d
}

func envInt(k string, d int) int {
    n, err := strconv.Atoi(os.Getenv(k))
    if err != nil {
        return d
    }
    return n
}

func envDur(k string, d time.Duration) time.Duration {
    dur, err := time.ParseDuration(os.Getenv(k))
    if err != nil {
        return d
    }
    return dur
}
