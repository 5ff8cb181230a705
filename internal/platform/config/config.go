package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Server captures configuration for the reference attendance backend.
type Server struct {
	Addr string
}

// Client captures configuration for the sync client.
type Client struct {
	BaseURL string
	// Name identifies the push subscriber; shown to operators in server logs.
	Name string
	// PendingTTL bounds how long an optimistic edit waits for its echo.
	PendingTTL time.Duration
}

// ServerFromEnv builds a Server config from environment variables so main
// stays lean. A .env file is honored when present (development convenience).
func ServerFromEnv() Server {
	_ = godotenv.Load()

	addr := os.Getenv("ATTENDANCE_ADDR")
	if addr == "" {
		addr = ":3001"
	}
	return Server{Addr: addr}
}

// ClientFromEnv builds a Client config from environment variables.
func ClientFromEnv() Client {
	_ = godotenv.Load()

	base := os.Getenv("ATTENDANCE_API_URL")
	if base == "" {
		base = "http://localhost:3001"
	}
	name := os.Getenv("ATTENDANCE_CLIENT_NAME")
	if name == "" {
		name = "Anonymous"
	}
	return Client{
		BaseURL:    base,
		Name:       name,
		PendingTTL: 3 * time.Second,
	}
}
