package config

import (
	"fmt"

	"github.com/grand-thief-cash/resurrector/internal/application/consts"
)

type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

func (v *Validator) ValidateAppConfig(cfg *AppConfig) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	return v.validateEnv(cfg.APPInfo.ENV)
}

func (v *Validator) validateConfigFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("config file path cannot be empty")
	}
	if !fileExists(path) {
		return fmt.Errorf("config file does not exist: %s", path)
	}
	return nil
}

func (v *Validator) validateEnv(env string) error {
	switch env {
	case consts.ENV_DEVELOPMENT, consts.ENV_TEST, consts.ENV_PRODUCTION:
		return nil
	}
	return fmt.Errorf("running environment is not valid: %q", env)
}
