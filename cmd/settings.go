package cmd

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"strata/internal/config"
	"strata/pkg/logging"
)

const (
	modeDev  = "dev"
	modeProd = "prod"
)

// Settings are the CLI options shared by every command. Each can be set by
// flag, by a STRATA_* environment variable or in ~/.config/strata/cli.yaml,
// in that order of precedence.
type Settings struct {
	ConfigFile  string
	EnvFile     string
	Environment string
	Mode        string
	Project     string
	ComposeFile string
	Runtime     string
	DockerHost  string
	Systemd     string
	LogLevel    string
	LogFormat   string
}

var settings = viper.New()

func bindPersistentFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.String("config", config.DefaultConfigFile, "Stack configuration file")
	flags.String("env-file", "", "Env file used for interpolation (default: .env next to the configuration)")
	flags.StringP("env", "e", "", "Environment to use (default: default_environment of the configuration)")
	flags.String("mode", modeDev, "Deployment target: dev (containers) or prod (bare-metal processes)")
	flags.StringP("project", "p", "", "Compose project name (default: project of the configuration)")
	flags.String("compose-file", "", "Use this compose file instead of rendering the configuration (dev mode)")
	flags.String("runtime", "docker", "Container runtime: docker or podman (dev mode)")
	flags.String("docker-host", "", "Container runtime API endpoint (default: DOCKER_HOST)")
	flags.String("systemd", "", "Use systemd units: auto, always or never (prod mode)")
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")
	flags.String("log-format", string(logging.FormatText), "Log format: text or json")

	_ = v.BindPFlags(flags)
}

// initSettings wires the environment and the optional CLI settings file.
func initSettings() {
	configureSettings(settings, defaultCLIConfigPath())
}

func configureSettings(v *viper.Viper, cliConfig string) {
	v.SetEnvPrefix("STRATA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cliConfig == "" {
		return
	}
	v.SetConfigFile(cliConfig)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.Warn("Settings", "Ignoring %s: %v", cliConfig, err)
		}
	}
}

func defaultCLIConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "strata", "cli.yaml")
}

func currentSettings() Settings {
	return settingsFrom(settings)
}

func settingsFrom(v *viper.Viper) Settings {
	return Settings{
		ConfigFile:  v.GetString("config"),
		EnvFile:     v.GetString("env-file"),
		Environment: v.GetString("env"),
		Mode:        strings.ToLower(v.GetString("mode")),
		Project:     v.GetString("project"),
		ComposeFile: v.GetString("compose-file"),
		Runtime:     v.GetString("runtime"),
		DockerHost:  v.GetString("docker-host"),
		Systemd:     strings.ToLower(v.GetString("systemd")),
		LogLevel:    v.GetString("log-level"),
		LogFormat:   strings.ToLower(v.GetString("log-format")),
	}
}
