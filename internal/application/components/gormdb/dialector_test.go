package gormdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	cases := []struct {
		name string
		ds   DataSourceConfig
		want string
	}{
		{"explicit", DataSourceConfig{Driver: "mysql", DSN: " u:p@tcp(h:1)/d "}, "u:p@tcp(h:1)/d"},
		{"sqlite", DataSourceConfig{Path: "/var/lib/r.db"},
			"/var/lib/r.db?_pragma=busy_timeout%285000%29&_pragma=journal_mode%28WAL%29&_pragma=foreign_keys%281%29"},
		{"postgres", DataSourceConfig{Driver: "postgres", Host: "db", User: "u", Password: "p", Database: "r"},
			"host=db port=5432 user=u password=p dbname=r sslmode=disable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := BuildDSN(&tc.ds)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := BuildDSN(&DataSourceConfig{Driver: "MySQL", Host: "db", User: "u", Password: "p", Database: "r"})
	require.NoError(t, err)
	assert.Contains(t, dsn, "u:p@tcp(db:3306)/r?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestBuildDSNRequiresParts(t *testing.T) {
	for _, ds := range []DataSourceConfig{
		{},
		{Driver: "mysql", Host: "db"},
		{Driver: "postgres", User: "u"},
		{Driver: "oracle", Host: "db", User: "u", Database: "d"},
	} {
		_, err := BuildDSN(&ds)
		assert.Error(t, err, "%+v", ds)
	}
}

func TestComponentOpensSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.db")
	c := NewGormComponent(&Config{
		Enabled:     true,
		DataSources: map[string]*DataSourceConfig{"main": {Path: path, PingOnStart: true}},
	})
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Stop(context.Background()) })

	db, err := c.GetDB("main")
	require.NoError(t, err)
	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
	assert.NoError(t, c.HealthCheck())

	_, err = c.GetDB("other")
	assert.Error(t, err)
}
