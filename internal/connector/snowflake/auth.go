package snowflake

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	gosnowflake "github.com/snowflakedb/gosnowflake"
)

// keyPairDSN rewrites dsn to authenticate with the RSA key stored at keyPath.
func keyPairDSN(dsn, keyPath string) (string, error) {
	cfg, err := parseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("snowflake key-pair auth: %w", err)
	}
	key, err := readRSAKey(keyPath)
	if err != nil {
		return "", fmt.Errorf("snowflake key-pair auth: %w", err)
	}

	cfg.Password = ""
	cfg.Authenticator = gosnowflake.AuthTypeJwt
	cfg.PrivateKey = key

	out, err := gosnowflake.DSN(cfg)
	if err != nil {
		return "", fmt.Errorf("snowflake key-pair auth: rebuild dsn: %w", err)
	}
	return out, nil
}

// parseDSN accepts user@account/db as well as user:pass@account/db. The
// driver's parser insists on a password, which key-pair auth never uses.
func parseDSN(dsn string) (*gosnowflake.Config, error) {
	cfg, err := gosnowflake.ParseDSN(dsn)
	if err == nil {
		return cfg, nil
	}
	at := strings.Index(dsn, "@")
	if !strings.Contains(err.Error(), "password is empty") || at <= 0 || strings.Contains(dsn[:at], ":") {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg, err = gosnowflake.ParseDSN(dsn[:at] + ":_" + dsn[at:])
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	return cfg, nil
}

// pemParsers maps a PEM block type to the x509 parser for it.
var pemParsers = map[string]func([]byte) (any, error){
	"RSA PRIVATE KEY": func(der []byte) (any, error) { return x509.ParsePKCS1PrivateKey(der) },
	"PRIVATE KEY":     x509.ParsePKCS8PrivateKey,
}

// readRSAKey loads an unencrypted PKCS#1 or PKCS#8 RSA key.
func readRSAKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%s: no PEM block", path)
	}
	parse, ok := pemParsers[block.Type]
	if !ok {
		return nil, fmt.Errorf("%s: unsupported PEM block %q, want RSA PRIVATE KEY or PRIVATE KEY", path, block.Type)
	}
	key, err := parse(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%s: key is %T, want RSA", path, key)
	}
	return rsaKey, nil
}
