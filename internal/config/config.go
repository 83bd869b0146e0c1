package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

const FILE_MODE = "file"
const HTTP_MODE = "http"

type PayloadLogConf struct {
	Mode       string
	PluginsDir string     `yaml:"plugins_dir"`
	Hooks      []Hook     `yaml:"hooks"`
	WorkingDir string     `yaml:"working_dir"`
	File       FileConf   `yaml:"file"`
	Http       HTTPConf   `yaml:"http"`
	LogLevel   string     `yaml:"log_level"`
	slogLevel  slog.Level `yaml:"omitempty"`
}

func (pc *PayloadLogConf) setLogLevel() {
	switch pc.LogLevel {
	case "DEBUG":
		pc.slogLevel = slog.LevelDebug
	case "INFO":
		pc.slogLevel = slog.LevelInfo
	case "WARN":
		pc.slogLevel = slog.LevelWarn
	case "ERROR":
		pc.slogLevel = slog.LevelError
	default:
		pc.slogLevel = slog.LevelInfo
	}
}

func (pc *PayloadLogConf) GetLogLevel() slog.Level {
	return pc.slogLevel
}

// FileConf lists NDJSON capture files replayed in file mode.
type FileConf struct {
	Paths []string `yaml:"paths"`
	Poll  bool     `yaml:"poll"`
}

type HTTPConf struct {
	ListenPort    int    `yaml:"listen_port"`
	ListenAddress string `yaml:"listen_address"`
}

func ParsePayloadLogConfig(path string) (conf PayloadLogConf, err error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return conf, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	return parse(file)
}

func parse(raw []byte) (conf PayloadLogConf, err error) {
	if err = yaml.Unmarshal(raw, &conf); err != nil {
		return conf, fmt.Errorf("cannot parse config: %w", err)
	}

	conf.setMode()
	conf.setPort()
	conf.setWorkingDir()
	conf.setLogLevel()

	if err = conf.validateHooks(); err != nil {
		return conf, err
	}
	return conf, nil
}

func (pc *PayloadLogConf) setMode() {
	switch pc.Mode {
	case FILE_MODE:
		pc.Mode = FILE_MODE
	case HTTP_MODE:
		pc.Mode = HTTP_MODE
	default:
		pc.Mode = HTTP_MODE
	}
}

func (pc *PayloadLogConf) setPort() {
	if pc.Http.ListenPort == 0 {
		pc.Http.ListenPort = 2021
	}
}

func (pc *PayloadLogConf) setWorkingDir() {
	if pc.WorkingDir == "" {
		pc.WorkingDir = "/var/lib/payloadlog"
	}
}

func (pc *PayloadLogConf) validateHooks() error {
	seen := make(map[string]bool, len(pc.Hooks))
	for _, h := range pc.Hooks {
		if h.Name == "" {
			return fmt.Errorf("hook of type %q has no name", h.PluginName)
		}
		if h.PluginName == "" {
			return fmt.Errorf("hook %q has no type", h.Name)
		}
		if seen[h.Name] {
			return fmt.Errorf("duplicate hook name %q", h.Name)
		}
		seen[h.Name] = true
	}
	return nil
}
