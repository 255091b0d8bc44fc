// Package config holds the explicit settings passed into stores, publishers
// and the catalog client. Nothing in here reads global state; the CLI fills
// a Config from flags, environment and an optional config file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opendatabs/odsync/internal/changetrack"
	"github.com/opendatabs/odsync/internal/ods"
	"github.com/opendatabs/odsync/internal/publish"
	"github.com/opendatabs/odsync/internal/utils"
)

var (
	home, _             = os.UserHomeDir()
	DefaultStateDir     = filepath.Join(home, ".odsync")
	DefaultConfigPath   = filepath.Join(DefaultStateDir, "config.yaml")
	DefaultBaseURL      = "https://data.bs.ch"
	DefaultPublishDelay = ods.DefaultPublishDelay
)

const (
	StoreJournal   = "journal"
	StoreHashFiles = "hashfiles"
)

var (
	ErrNoStateDir     = errors.New("config: state dir missing")
	ErrUnknownStore   = errors.New("config: unknown store")
	ErrUnknownDestKey = errors.New("config: unknown destination")
)

type FTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Endpoint  string `mapstructure:"endpoint"`
	Prefix    string `mapstructure:"prefix"`
}

type ODSConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PublishDelay time.Duration `mapstructure:"publish_delay"`
}

type Config struct {
	Path      string    `mapstructure:"-"`
	StateDir  string    `mapstructure:"state_dir"`
	Store     string    `mapstructure:"store"`
	Algorithm string    `mapstructure:"algorithm"`
	LogFile   string    `mapstructure:"log_file"`
	FTP       FTPConfig `mapstructure:"ftp"`
	S3        S3Config  `mapstructure:"s3"`
	ODS       ODSConfig `mapstructure:"ods"`
}

// Default returns a Config with every optional value filled in.
func Default() *Config {
	return &Config{
		StateDir:  DefaultStateDir,
		Store:     StoreJournal,
		Algorithm: string(changetrack.DefaultAlgorithm),
		ODS: ODSConfig{
			BaseURL:      DefaultBaseURL,
			PublishDelay: DefaultPublishDelay,
		},
	}
}

// Validate normalizes paths and checks the settings every command needs.
// Destination sections are checked by ValidateDestination.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.StateDir) == "" {
		return ErrNoStateDir
	}
	stateDir, err := utils.ResolvePath(c.StateDir)
	if err != nil {
		return fmt.Errorf("state dir: %w", err)
	}
	c.StateDir = stateDir

	if c.Path != "" {
		if c.Path, err = utils.ResolvePath(c.Path); err != nil {
			return fmt.Errorf("config path: %w", err)
		}
	}

	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.StateDir, "logs", "odsync.log")
	}

	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	if c.Store == "" {
		c.Store = StoreJournal
	}
	if c.Store != StoreJournal && c.Store != StoreHashFiles {
		return fmt.Errorf("%w %q", ErrUnknownStore, c.Store)
	}

	if c.Algorithm == "" {
		c.Algorithm = string(changetrack.DefaultAlgorithm)
	}
	algo, err := changetrack.ParseAlgorithm(c.Algorithm)
	if err != nil {
		return err
	}
	c.Algorithm = string(algo)

	if c.ODS.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.ODS.BaseURL); err != nil {
			return fmt.Errorf("invalid ods base url %q: %w", c.ODS.BaseURL, err)
		}
	}
	if c.ODS.PublishDelay < 0 {
		return fmt.Errorf("invalid ods publish delay %s", c.ODS.PublishDelay)
	}
	return nil
}

// ValidateDestination checks the section a destination kind depends on.
func (c *Config) ValidateDestination(kind string) error {
	switch kind {
	case "ftp":
		cfg := c.FTPFor("")
		return cfg.Validate()
	case "s3":
		cfg := c.S3For("")
		return cfg.Validate()
	case "realtime":
		// push url and key come with each job
		return nil
	default:
		return fmt.Errorf("%w %q", ErrUnknownDestKey, kind)
	}
}

// FTPFor returns the FTP settings targeting remoteDir.
func (c *Config) FTPFor(remoteDir string) publish.FTPConfig {
	return publish.FTPConfig{
		Host:      c.FTP.Host,
		Port:      c.FTP.Port,
		User:      c.FTP.User,
		Password:  c.FTP.Password,
		RemoteDir: remoteDir,
		Timeout:   c.FTP.Timeout,
	}
}

// S3For returns the S3 settings; a non-empty remoteDir is appended to the
// configured prefix.
func (c *Config) S3For(remoteDir string) publish.S3Config {
	prefix := strings.Trim(c.S3.Prefix, "/")
	if remoteDir = strings.Trim(remoteDir, "/"); remoteDir != "" {
		if prefix == "" {
			prefix = remoteDir
		} else {
			prefix = prefix + "/" + remoteDir
		}
	}
	return publish.S3Config{
		Bucket:    c.S3.Bucket,
		Region:    c.S3.Region,
		AccessKey: c.S3.AccessKey,
		SecretKey: c.S3.SecretKey,
		Endpoint:  c.S3.Endpoint,
		Prefix:    prefix,
	}
}

func (c *Config) ODSClient() ods.Config {
	return ods.Config{
		BaseURL:      c.ODS.BaseURL,
		APIKey:       c.ODS.APIKey,
		Timeout:      c.ODS.Timeout,
		PublishDelay: c.ODS.PublishDelay,
	}
}

// HashAlgorithm is the validated digest algorithm.
func (c *Config) HashAlgorithm() changetrack.Algorithm {
	return changetrack.Algorithm(c.Algorithm)
}

// Masked returns a copy safe to log.
func (c *Config) Masked() Config {
	cp := *c
	cp.FTP.Password = utils.MaskSecret(cp.FTP.Password)
	cp.S3.SecretKey = utils.MaskSecret(cp.S3.SecretKey)
	cp.ODS.APIKey = utils.MaskSecret(cp.ODS.APIKey)
	return cp
}
