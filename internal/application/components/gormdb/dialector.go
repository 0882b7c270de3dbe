package gormdb

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	mysqldrv "github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Dialector builds the gorm dialector for ds.
func Dialector(ds *DataSourceConfig) (gorm.Dialector, error) {
	dsn, err := BuildDSN(ds)
	if err != nil {
		return nil, err
	}
	switch driverOf(ds) {
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	case DriverMySQL:
		return gormmysql.New(gormmysql.Config{DSN: dsn}), nil
	case DriverPostgres:
		return gormpg.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", ds.Driver)
	}
}

// BuildDSN returns ds.DSN when set, otherwise assembles one from the driver specific parts.
func BuildDSN(ds *DataSourceConfig) (string, error) {
	if s := strings.TrimSpace(ds.DSN); s != "" {
		return s, nil
	}
	switch driverOf(ds) {
	case DriverSQLite:
		return sqliteDSN(ds)
	case DriverMySQL:
		return mysqlDSN(ds)
	case DriverPostgres:
		return postgresDSN(ds)
	}
	return "", fmt.Errorf("unsupported driver %q", ds.Driver)
}

func driverOf(ds *DataSourceConfig) string {
	if ds.Driver == "" {
		return DriverSQLite
	}
	return strings.ToLower(ds.Driver)
}

func sqliteDSN(ds *DataSourceConfig) (string, error) {
	if ds.Path == "" {
		return "", errors.New("path required for sqlite when dsn not provided")
	}
	params := url.Values{}
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "foreign_keys(1)")
	for _, k := range sortedKeys(ds.Params) {
		params.Add(k, ds.Params[k])
	}
	return ds.Path + "?" + params.Encode(), nil
}

func mysqlDSN(ds *DataSourceConfig) (string, error) {
	if ds.Host == "" || ds.User == "" || ds.Database == "" {
		return "", errors.New("host, user, database required when dsn not provided")
	}
	port := ds.Port
	if port == 0 {
		port = 3306
	}
	cfg := mysqldrv.NewConfig()
	cfg.User = ds.User
	cfg.Passwd = ds.Password
	cfg.Net = "tcp"
	cfg.Addr = ds.Host + ":" + strconv.Itoa(port)
	cfg.DBName = ds.Database
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	for k, v := range ds.Params {
		cfg.Params[k] = v
	}
	return cfg.FormatDSN(), nil
}

func postgresDSN(ds *DataSourceConfig) (string, error) {
	if ds.Host == "" || ds.User == "" || ds.Database == "" {
		return "", errors.New("host, user, database required when dsn not provided")
	}
	port := ds.Port
	if port == 0 {
		port = 5432
	}
	parts := []string{
		"host=" + ds.Host,
		"port=" + strconv.Itoa(port),
		"user=" + ds.User,
		"password=" + ds.Password,
		"dbname=" + ds.Database,
	}
	params := map[string]string{"sslmode": "disable"}
	for k, v := range ds.Params {
		params[k] = v
	}
	for _, k := range sortedKeys(params) {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, " "), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
