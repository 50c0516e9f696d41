package app

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ConfigureViper sets up viper with standard config file search paths.
// Config file: get-ctr.toml
// Search paths (in order): current directory, $XDG_CONFIG_HOME/get-ctr, /etc/get-ctr
func ConfigureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.SetConfigName("get-ctr")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath(filepath.Join(configHome(), "get-ctr"))
	v.AddConfigPath("/etc/get-ctr")
}

func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config")
	}
	return ".config"
}
