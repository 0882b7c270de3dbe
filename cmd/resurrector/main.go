package main

import (
	"flag"
	"log"

	"github.com/grand-thief-cash/resurrector/internal/application"
	"github.com/grand-thief-cash/resurrector/internal/application/consts"
	bizConfig "github.com/grand-thief-cash/resurrector/internal/config"
	_ "github.com/grand-thief-cash/resurrector/internal/registry_ext"
)

func main() {
	env := flag.String("env", consts.ENV_DEVELOPMENT, "running environment: development|test|production")
	cfgPath := flag.String("config", consts.DEFAULT_CONFIG_PATH, "config file path")
	flag.Parse()

	app := application.NewApp(*env, *cfgPath)
	app.SetBizConfig(&bizConfig.BizConfig{})
	if err := app.Run(); err != nil {
		log.Fatalf("resurrector exited: %v", err)
	}
}
