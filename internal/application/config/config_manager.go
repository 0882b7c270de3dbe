package config

type ConfigManager struct {
	loader    *Loader
	validator *Validator
	appConfig *AppConfig
}

func NewConfigManager(env string, configPath string) *ConfigManager {
	return &ConfigManager{
		loader:    NewLoader(env, configPath),
		validator: NewValidator(),
	}
}

// SetBizConfig must be called before LoadConfig.
func (cm *ConfigManager) SetBizConfig(b any) {
	if cm != nil && cm.loader != nil {
		cm.loader.SetBizConfig(b)
	}
}

func (cm *ConfigManager) BizConfig() any {
	if cm == nil || cm.appConfig == nil {
		return nil
	}
	return cm.appConfig.BizConfig
}

func (cm *ConfigManager) GetConfig() *AppConfig { return cm.appConfig }

func (cm *ConfigManager) LoadConfig() error {
	if err := cm.validator.validateConfigFilePath(cm.loader.configPath); err != nil {
		return err
	}
	cfg, err := cm.loader.LoadConfig()
	if err != nil {
		return err
	}
	if err := cm.validator.ValidateAppConfig(cfg); err != nil {
		return err
	}
	cm.appConfig = cfg
	return nil
}
