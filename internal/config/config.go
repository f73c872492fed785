package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Issuer     IssuerConfig
	Store      StoreConfig
	Signing    SigningConfig
	Validation ValidationConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

// IssuerConfig identifies the organization certificates are issued on
// behalf of and where verification links should point.
type IssuerConfig struct {
	// Organization appears as the issuer field of every certificate.
	Organization string
	// PublicBaseURL is the externally reachable base of this service,
	// used to build the verification URL embedded in rendered
	// certificates (QR codes).
	PublicBaseURL string
}

type StoreConfig struct {
	// Backend selects the certificate store: "file" or "dynamo".
	Backend string
	// Path is the certificate directory for the file backend.
	Path string
	// Dynamo configures the dynamo backend.
	Dynamo DynamoConfig
}

type DynamoConfig struct {
	// Region of the dynamoDB instance
	Region string
	// Name of the table certificates are persisted to
	CertificateTableName string

	// Endpoint may be set for local testing, usually with docker, e.g.
	// docker run -p 8000:8000 amazon/dynamodb-local -jar DynamoDBLocal.jar -sharedDb
	// then set endpoint to localhost:8000
	// Do not set for production.
	Endpoint string // for development
}

// SigningConfig declares the candidate signing providers. The first
// fully configured cloud provider wins; with none configured the
// service falls back to a locally stored key and warns loudly.
type SigningConfig struct {
	AWSRegion     string
	AWSKeyID      string
	AWSEndpoint   string
	GCPKeyName    string
	AzureVaultURL string
	AzureKeyName  string
	LocalKeyDir   string
}

type ValidationConfig struct {
	// Plausibility window for wipe durations. Records outside it are
	// rejected, not clamped.
	MinWipeDuration time.Duration
	MaxWipeDuration time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// New returns a viper instance preconfigured for the certifier config
// file locations and environment prefix.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".wipeout"))
	}
	v.AddConfigPath(".")
	v.SetEnvPrefix("WIPEOUT")
	// Nested keys use dots; env vars can't, so WIPEOUT_SIGNING_AWS_KEY_ID
	// must resolve to signing.aws_key_id.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file (if any) into v. Missing files are fine;
// everything has flag/env/default coverage.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
		Issuer: IssuerConfig{
			Organization:  v.GetString("issuer.organization"),
			PublicBaseURL: v.GetString("issuer.public_base_url"),
		},
		Store: StoreConfig{
			Backend: v.GetString("store.backend"),
			Path:    v.GetString("store.path"),
			Dynamo: DynamoConfig{
				Region:               v.GetString("store.region"),
				CertificateTableName: v.GetString("store.certificate_table_name"),
				Endpoint:             v.GetString("store.endpoint"),
			},
		},
		Signing: SigningConfig{
			AWSRegion:     v.GetString("signing.aws_region"),
			AWSKeyID:      v.GetString("signing.aws_key_id"),
			AWSEndpoint:   v.GetString("signing.aws_endpoint"),
			GCPKeyName:    v.GetString("signing.gcp_key_name"),
			AzureVaultURL: v.GetString("signing.azure_vault_url"),
			AzureKeyName:  v.GetString("signing.azure_key_name"),
			LocalKeyDir:   v.GetString("signing.local_key_dir"),
		},
		Validation: ValidationConfig{
			MinWipeDuration: v.GetDuration("validation.min_wipe_duration"),
			MaxWipeDuration: v.GetDuration("validation.max_wipe_duration"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Issuer.Organization == "" {
		cfg.Issuer.Organization = "WipeOut"
	}
	if cfg.Issuer.PublicBaseURL == "" {
		cfg.Issuer.PublicBaseURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "file"
	}
	switch cfg.Store.Backend {
	case "file":
		if cfg.Store.Path == "" {
			cfg.Store.Path = "certificates"
		}
	case "dynamo":
		if cfg.Store.Dynamo.Region == "" {
			return nil, fmt.Errorf("store region not set")
		}
		if cfg.Store.Dynamo.CertificateTableName == "" {
			return nil, fmt.Errorf("store certificate table not set")
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Signing.LocalKeyDir == "" {
		cfg.Signing.LocalKeyDir = "keys"
	}

	if cfg.Validation.MinWipeDuration == 0 {
		cfg.Validation.MinWipeDuration = 6 * time.Second
	}
	if cfg.Validation.MaxWipeDuration == 0 {
		cfg.Validation.MaxWipeDuration = 7 * 24 * time.Hour
	}
	if cfg.Validation.MinWipeDuration >= cfg.Validation.MaxWipeDuration {
		return nil, fmt.Errorf("validation min wipe duration must be below max")
	}

	return cfg, nil
}

func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
