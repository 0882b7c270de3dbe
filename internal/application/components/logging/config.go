package logging

import "time"

type LoggingConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	Level        string        `yaml:"level" json:"level"`
	Format       string        `yaml:"format" json:"format"` // json | console
	Output       string        `yaml:"output" json:"output"` // stdout | stderr | file | <path>
	FileConfig   *FileConfig   `yaml:"file_config,omitempty" json:"file_config,omitempty"`
	RotateConfig *RotateConfig `yaml:"rotate_config,omitempty" json:"rotate_config,omitempty"`
}

type FileConfig struct {
	Dir      string `yaml:"dir" json:"dir"`
	Filename string `yaml:"filename" json:"filename"` // without the .log suffix
}

// RotateConfig drives lumberjack size/age based rotation.
type RotateConfig struct {
	Enabled    bool          `yaml:"enabled" json:"enabled"`
	MaxSizeMB  int           `yaml:"max_size_mb" json:"max_size_mb"`
	MaxAge     time.Duration `yaml:"max_age" json:"max_age"`
	MaxBackups int           `yaml:"max_backups" json:"max_backups"`
	Compress   bool          `yaml:"compress" json:"compress"`
}
