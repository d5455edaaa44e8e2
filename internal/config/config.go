package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	// Typed-data signing domain. Signatures are only valid for the exact
	// name/version/chain/contract tuple configured here.
	SigningName     string
	SigningVersion  string
	ChainID         uint64
	ContractAddress string

	// Settlement parties.
	CustodianAddress    string
	FeeRecipientAddress string

	// Address the items predicate verifier is allowlisted under.
	ItemsVerifierAddress string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func Load() *Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	c := &Config{
		AppPort:   getenv("APP_PORT", "8080"),
		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "arcade"),
		MySQLUser: getenv("MYSQL_USER", "arcade"),
		MySQLPass: getenv("MYSQL_PASS", "arcade"),

		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		IdempTTLSecs: 300,

		SigningName:     getenv("SIGNING_NAME", "ArcadeOrigination"),
		SigningVersion:  getenv("SIGNING_VERSION", "4"),
		ChainID:         1,
		ContractAddress: getenv("CONTRACT_ADDRESS", ""),

		CustodianAddress:    getenv("CUSTODIAN_ADDRESS", ""),
		FeeRecipientAddress: getenv("FEE_RECIPIENT_ADDRESS", ""),

		ItemsVerifierAddress: getenv("ITEMS_VERIFIER_ADDRESS", ""),
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
	if v := os.Getenv("IDEMPOTENCY_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.IdempTTLSecs = n
		}
	}
	if v := os.Getenv("CHAIN_ID"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.ChainID = n
		}
	}
	return c
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.SigningName == "" || c.SigningVersion == "" {
		return errors.New("missing signing domain (SIGNING_NAME/SIGNING_VERSION)")
	}
	for _, f := range []struct {
		env string
		val string
	}{
		{"CONTRACT_ADDRESS", c.ContractAddress},
		{"CUSTODIAN_ADDRESS", c.CustodianAddress},
		{"FEE_RECIPIENT_ADDRESS", c.FeeRecipientAddress},
	} {
		if !common.IsHexAddress(f.val) {
			return fmt.Errorf("missing or invalid %s %q", f.env, f.val)
		}
	}
	// optional: items verifier is only registered when configured
	if c.ItemsVerifierAddress != "" && !common.IsHexAddress(c.ItemsVerifierAddress) {
		return fmt.Errorf("invalid ITEMS_VERIFIER_ADDRESS %q", c.ItemsVerifierAddress)
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
