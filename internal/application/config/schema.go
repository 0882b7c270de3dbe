package config

import (
	"github.com/grand-thief-cash/resurrector/internal/application/components/gormdb"
	"github.com/grand-thief-cash/resurrector/internal/application/components/http_client"
	"github.com/grand-thief-cash/resurrector/internal/application/components/http_server"
	"github.com/grand-thief-cash/resurrector/internal/application/components/logging"
	"github.com/grand-thief-cash/resurrector/internal/application/components/prometheus"
	"github.com/grand-thief-cash/resurrector/internal/application/components/redis"
	"github.com/grand-thief-cash/resurrector/internal/application/components/telemetry"
)

// AppConfig is the root of the configuration file. Each infra section is
// optional; a nil or disabled section skips its component.
type AppConfig struct {
	APPInfo     *APPInfo                        `yaml:"app_info" json:"app_info"`
	Logging     *logging.LoggingConfig          `yaml:"logging" json:"logging"`
	Gorm        *gormdb.Config                  `yaml:"gorm" json:"gorm"`
	Redis       *redis.Config                   `yaml:"redis" json:"redis"`
	Prometheus  *prometheus.Config              `yaml:"prometheus" json:"prometheus"`
	Telemetry   *telemetry.Config               `yaml:"telemetry" json:"telemetry"`
	HTTPServer  *http_server.HTTPServerConfig   `yaml:"http_server" json:"http_server"`
	HTTPClients *http_client.HTTPClientsConfig  `yaml:"http_clients" json:"http_clients"`

	// BizConfig holds the project section; after loading it is the pointer passed to SetBizConfig.
	BizConfig any `yaml:"biz_config" json:"biz_config"`
}

type APPInfo struct {
	APPName string `yaml:"app_name" json:"app_name"`
	ENV     string `yaml:"env" json:"env"`
}
