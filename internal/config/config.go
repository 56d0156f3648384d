package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types

    "github.com/joho/godotenv" // godotenv loads a local .env file into the environment
)

// Config holds all runtime configuration values.  It is built once in main
// and handed to the constructors that need it; nothing reads the
// environment after start-up.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time‑to‑live in minutes
    RefreshTTLDays int    // refresh token time‑to‑live in days
    BcryptCost     int    // bcrypt cost for password hashing
    UploadMaxBytes int64  // request body ceiling for multipart uploads
    JobsPageSize   int    // default page size for job listings
    PostsPageSize  int    // default page size for blog posts
    MaxPageSize    int    // upper bound for a client supplied page_size
    AMQPURL        string // broker URL for application events; empty disables publishing
    AdminEmail     string // optional superuser bootstrapped at start-up
    AdminPassword  string // password for AdminEmail
    CORSOrigins    []string
}

// Load reads configuration values from an optional .env file and the process
// environment.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    // A missing .env file is normal outside local development.
    _ = godotenv.Load()

    return Config{
        Env:            must("APP_ENV"),                                 // environment (dev/test/prod)
        Port:           must("APP_PORT"),                                // port to bind the HTTP server
        DBUser:         must("DB_USER"),                                 // database user
        DBPass:         os.Getenv("DB_PASS"),                            // database password (empty allowed)
        DBHost:         must("DB_HOST"),                                 // database host
        DBPort:         must("DB_PORT"),                                 // database port
        DBName:         must("DB_NAME"),                                 // database name
        JWTSecret:      must("JWT_SECRET"),                              // secret used for signing JWTs
        AccessTTLMin:   intOr("ACCESS_TOKEN_TTL_MIN", 7*24*60),          // 7 days
        RefreshTTLDays: intOr("REFRESH_TOKEN_TTL_DAYS", 30),             // 30 days
        BcryptCost:     intOr("BCRYPT_COST", 12),                        // bcrypt cost factor
        UploadMaxBytes: int64(intOr("UPLOAD_MAX_BYTES", 5*1024*1024)),   // 5 MB
        JobsPageSize:   intOr("JOBS_PAGE_SIZE", 10),
        PostsPageSize:  intOr("POSTS_PAGE_SIZE", 6),
        MaxPageSize:    intOr("MAX_PAGE_SIZE", 100),
        AMQPURL:        amqpURL(),
        AdminEmail:     os.Getenv("ADMIN_EMAIL"),
        AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
        CORSOrigins:    parseList(getenv("CORS_ORIGINS", "*")),
    }
}

// IsDev reports whether the process runs in a development environment.
func (c Config) IsDev() bool {
    switch c.Env {
    case "dev", "development", "local":
        return true
    }
    return false
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// intOr parses an optional integer variable.  A present but malformed value
// is a configuration error and stops the process.
func intOr(key string, def int) int {
    s := os.Getenv(key)
    if s == "" {
        return def
    }
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

func amqpURL() string {
    if v := os.Getenv("RABBITMQ_URL"); v != "" {
        return v
    }
    return os.Getenv("AMQP_URL")
}
