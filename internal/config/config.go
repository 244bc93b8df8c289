package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"`
}

type DynamoDBConfig struct {
	Region            string `mapstructure:"region"`
	Endpoint          string `mapstructure:"endpoint"`
	AccountsTable     string `mapstructure:"accounts_table"`
	TransactionsTable string `mapstructure:"transactions_table"`
	InvoicesTable     string `mapstructure:"invoices_table"`
}

type S3Config struct {
	Bucket   string        `mapstructure:"bucket"`
	Endpoint string        `mapstructure:"endpoint"`
	URLTTL   time.Duration `mapstructure:"url_ttl"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type AuditConfig struct {
	// Address empty disables the immudb audit trail.
	Address  string `mapstructure:"address"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	DynamoDB DynamoDBConfig `mapstructure:"dynamodb"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Log      LogConfig      `mapstructure:"log"`
}

// Load reads configuration from the given file (config.yaml in the working
// directory when path is empty) with MJ_-prefixed environment overrides,
// e.g. MJ_S3_BUCKET. The file is optional; environment-only deployments are
// fine.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("MJ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if c.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret (MJ_JWT_SECRET) must be set")
	}

	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("dynamodb.region", "us-east-1")
	v.SetDefault("dynamodb.endpoint", "")
	v.SetDefault("dynamodb.accounts_table", "Accounts")
	v.SetDefault("dynamodb.transactions_table", "Transactions")
	v.SetDefault("dynamodb.invoices_table", "Invoices")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.url_ttl", time.Hour)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("audit.address", "")
	v.SetDefault("audit.port", 3322)
	v.SetDefault("audit.username", "immudb")
	v.SetDefault("audit.password", "immudb")
	v.SetDefault("audit.database", "defaultdb")
	v.SetDefault("log.level", "info")
}
