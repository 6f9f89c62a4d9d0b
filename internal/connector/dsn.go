package connector

import (
	"net/url"
	"regexp"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
)

// dsnNormalizers repair the DSN spellings people paste from other tools.
// Drivers without an entry take the DSN as given.
var dsnNormalizers = map[string]func(string) string{
	"postgres": escapeUserinfo,
	"mssql":    escapeUserinfo,
	"oracle":   escapeUserinfo,
	"mysql":    normalizeMySQL,
}

// NormalizeDSN rewrites dsn into the form the driver's parser accepts.
func NormalizeDSN(driver, dsn string) string {
	if fix, ok := dsnNormalizers[driver]; ok {
		return fix(dsn)
	}
	return dsn
}

const redacted = "xxxxx"

// RedactDSN replaces the password in dsn with xxxxx so it can be printed.
// File paths and DSNs without credentials come back unchanged.
func RedactDSN(driver, dsn string) string {
	if driver == "mysql" {
		if cfg, err := mysqldriver.ParseDSN(NormalizeDSN(driver, dsn)); err == nil {
			if cfg.Passwd != "" {
				cfg.Passwd = redacted
			}
			return cfg.FormatDSN()
		}
	}
	if strings.Contains(dsn, "://") {
		if u, err := url.Parse(escapeUserinfo(dsn)); err == nil {
			return u.Redacted()
		}
	}
	// user:pass@account/... without a scheme, as Snowflake uses.
	if at := strings.LastIndex(dsn, "@"); at > 0 {
		if colon := strings.Index(dsn[:at], ":"); colon >= 0 {
			return dsn[:colon+1] + redacted + dsn[at:]
		}
	}
	return dsn
}

// escapeUserinfo percent-encodes the user and password of a URL-style DSN.
// Raw passwords holding @, # or % otherwise make the URL parser split the
// authority in the wrong place; the last @ before the path is taken as the
// separator.
func escapeUserinfo(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	query := ""
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest, query = rest[:i], rest[i:]
	}
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return dsn
	}
	user, pass, hasPass := strings.Cut(rest[:at], ":")
	info := url.User(unescape(user))
	if hasPass {
		info = url.UserPassword(unescape(user), unescape(pass))
	}
	return scheme + "://" + info.String() + "@" + rest[at+1:] + query
}

// unescape undoes earlier percent-encoding so normalizing twice is stable.
func unescape(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}

// mysqlHostPort matches user:pass@host:port/db, which lacks the tcp(...)
// wrapper go-sql-driver requires.
var mysqlHostPort = regexp.MustCompile(`^(.+)@([^(@]+:\d+)(/.*)?$`)

// normalizeMySQL coerces user:pass@host:port/db and user:pass@(host:port)/db
// into user:pass@tcp(host:port)/db.
func normalizeMySQL(dsn string) string {
	candidates := []string{dsn}
	if i := strings.LastIndex(dsn, "@("); i >= 0 {
		candidates = append(candidates, dsn[:i]+"@tcp"+dsn[i+1:])
	}
	if m := mysqlHostPort.FindStringSubmatch(dsn); m != nil {
		candidates = append(candidates, m[1]+"@tcp("+m[2]+")"+m[3])
	}
	for i, c := range candidates {
		cfg, err := mysqldriver.ParseDSN(c)
		if err != nil {
			continue
		}
		if i == 0 && cfg.Net != "tcp" && cfg.Net != "unix" {
			continue
		}
		return cfg.FormatDSN()
	}
	return dsn
}
