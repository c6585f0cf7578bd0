package cli

import (
	"os"
	"path/filepath"
)

// Config holds CLI configuration
type Config struct {
	ServerURL     string
	Token         string
	RefreshCookie string
	SessionDir    string
	Output        string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:  getEnvOrDefault("DECKMATE_SERVER", "http://localhost:8080"),
		Token:      os.Getenv("DECKMATE_TOKEN"),
		SessionDir: getEnvOrDefault("DECKMATE_SESSION_DIR", defaultSessionDir()),
		Output:     "text",
	}
}

// LoadSession loads the saved access token and refresh cookie if not already
// set
func (c *Config) LoadSession() error {
	if c.Token == "" {
		token, err := readSessionFile(c.tokenFile())
		if err != nil {
			return err
		}
		c.Token = token
	}

	if c.RefreshCookie == "" {
		cookie, err := readSessionFile(c.cookieFile())
		if err != nil {
			return err
		}
		c.RefreshCookie = cookie
	}

	return nil
}

// SaveSession persists the access token and refresh cookie
func (c *Config) SaveSession(token, refreshCookie string) error {
	c.Token = token
	c.RefreshCookie = refreshCookie

	if err := os.MkdirAll(c.SessionDir, 0700); err != nil {
		return err
	}
	if err := os.WriteFile(c.tokenFile(), []byte(token), 0600); err != nil {
		return err
	}
	return os.WriteFile(c.cookieFile(), []byte(refreshCookie), 0600)
}

// ClearSession removes any saved session state
func (c *Config) ClearSession() error {
	c.Token = ""
	c.RefreshCookie = ""

	for _, path := range []string{c.tokenFile(), c.cookieFile()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (c *Config) tokenFile() string {
	return filepath.Join(c.SessionDir, "token")
}

func (c *Config) cookieFile() string {
	return filepath.Join(c.SessionDir, "refresh")
}

func readSessionFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil // No saved session is fine
		}
		return "", err
	}
	return string(data), nil
}

func defaultSessionDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".deckmate"
	}
	return filepath.Join(home, ".deckmate")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
