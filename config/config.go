// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"strings"
	"time"

	"github.com/sampletvinput/tvplay/constant"
	"github.com/sampletvinput/tvplay/filesystem"
	"github.com/sampletvinput/tvplay/key"
	"github.com/sampletvinput/tvplay/where"
	"github.com/spf13/viper"
)

// EnvKeyReplacer is a strings.Replacer used to normalize configuration keys into environment variable naming conventions.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Setup initializes the global configuration state, including defaults, environment bindings, and localized file resolution.
func Setup() error {
	viper.SetConfigName(constant.App)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(constant.App)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}

	return nil
}

// NetworkTimeout returns the configured manifest request timeout.
func NetworkTimeout() time.Duration {
	return time.Duration(viper.GetInt(key.NetworkTimeout)) * time.Second
}

// Volume returns the configured initial volume clamped to [0, 1].
func Volume() float32 {
	v := viper.GetFloat64(key.PlayerVolume)
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return float32(v)
	}
}
