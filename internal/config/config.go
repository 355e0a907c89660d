package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/felo/eml2text/internal/charsets"
)

// Config holds application configuration
type Config struct {
	// Output settings
	Output         string // path, or "-"/"stdout" for standard output
	OutputEncoding string
	ErrorPolicy    string // ignore, replace or strict

	// Input settings
	Mbox bool // inputs are mbox files holding many messages

	// Journal settings
	JournalPath   string // empty disables the journal
	SkipConverted bool

	Verbose bool
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Output:         "-",
		OutputEncoding: charsets.LocaleEncoding(),
		ErrorPolicy:    string(charsets.PolicyReplace),
	}
}

// DefaultJournalPath returns ~/.eml2text/journal.db
func DefaultJournalPath() string {
	// Get user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".eml2text", "journal.db")
}

// UsesStdout reports whether output goes to standard output
func (c *Config) UsesStdout() bool {
	return c.Output == "" || c.Output == "-" || c.Output == "stdout"
}

// Policy returns the parsed output error policy
func (c *Config) Policy() (charsets.Policy, error) {
	return charsets.ParsePolicy(c.ErrorPolicy)
}

// Validate checks option combinations and values
func (c *Config) Validate() error {
	if _, err := c.Policy(); err != nil {
		return err
	}
	if c.OutputEncoding != "" && !charsets.IsUTF8(c.OutputEncoding) {
		if _, err := charsets.Lookup(c.OutputEncoding); err != nil {
			return fmt.Errorf("invalid output encoding: %w", err)
		}
	}
	if c.SkipConverted && c.JournalPath == "" {
		return fmt.Errorf("--skip-converted requires --journal")
	}
	return nil
}
