package mongostore

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root connection configuration: one entry per database
// alias. Schemas address their database by alias, never by URI.
type Config struct {
	Databases map[string]DatabaseConfig `yaml:"databases"`
}

// DatabaseConfig describes one named database connection.
type DatabaseConfig struct {
	// URI is the full connection string. When set it wins over Host/Port.
	URI string `yaml:"uri,omitempty"`

	// Host and Port build a mongodb:// URI when URI is empty.
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	// Name is the database name on the server.
	Name string `yaml:"name"`

	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// ReplicaSet, when set, is appended to the generated URI.
	ReplicaSet string `yaml:"replica_set,omitempty"`

	// ConnectTimeout bounds the ping after connecting.
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates raw YAML config bytes.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every alias names a database and has an address.
func (c *Config) Validate() error {
	if len(c.Databases) == 0 {
		return fmt.Errorf("config: no databases declared")
	}
	for alias, db := range c.Databases {
		if db.Name == "" {
			return fmt.Errorf("config: database %q: name is required", alias)
		}
		if db.URI == "" && db.Host == "" {
			return fmt.Errorf("config: database %q: uri or host is required", alias)
		}
	}
	return nil
}

// ConnectionURI renders the effective connection string for one database.
func (d DatabaseConfig) ConnectionURI() string {
	if d.URI != "" {
		return d.URI
	}
	port := d.Port
	if port == 0 {
		port = 27017
	}
	uri := "mongodb://"
	if d.Username != "" {
		uri += d.Username
		if d.Password != "" {
			uri += ":" + d.Password
		}
		uri += "@"
	}
	uri += fmt.Sprintf("%s:%d/%s", d.Host, port, d.Name)
	if d.ReplicaSet != "" {
		uri += "?replicaSet=" + d.ReplicaSet
	}
	return uri
}
