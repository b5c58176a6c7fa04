package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sampletvinput/tvplay/color"
	"github.com/sampletvinput/tvplay/constant"
	"github.com/sampletvinput/tvplay/key"
	"github.com/sampletvinput/tvplay/style"
	"github.com/spf13/viper"
)

// Field is a registered setting with its default value.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Env returns the environment variable that overrides the field.
func (f *Field) Env() string {
	return strings.ToUpper(constant.App + "_" + EnvKeyReplacer.Replace(f.Key))
}

// Pretty describes the field for terminal output.
func (f *Field) Pretty() string {
	label := style.Fg(color.Blue)
	lines := []string{
		style.Faint(f.Description),
		label("Key:") + "     " + style.Fg(color.Purple)(f.Key),
		label("Env:") + "     " + f.Env(),
		label("Value:") + "   " + highlight(viper.Get(f.Key)),
		label("Default:") + " " + highlight(f.Value),
		label("Type:") + "    " + f.typeName(),
	}
	return strings.Join(lines, "\n")
}

func highlight(v any) string {
	switch value := v.(type) {
	case bool:
		if value {
			return style.Fg(color.Green)(strconv.FormatBool(value))
		}
		return style.Fg(color.Red)(strconv.FormatBool(value))
	case string:
		return style.Fg(color.Yellow)(value)
	default:
		return fmt.Sprint(value)
	}
}

func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Env         string `json:"env"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Env:         f.Env(),
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case float64:
		return "float64"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	default:
		return fmt.Sprintf("%T", f.Value)
	}
}

// Default holds every registered field by key.
var Default = make(map[string]Field)

// EnvExposed lists the keys bound to environment variables.
var EnvExposed []string

func register(k string, v any, desc string) {
	if _, exists := Default[k]; exists {
		panic("duplicate config key: " + k)
	}
	Default[k] = Field{Key: k, Value: v, Description: desc}
	EnvExposed = append(EnvExposed, k)
}

func init() {
	register(key.PlayerEngine, "mpv", "Media engine to drive.\nAvailable options are: mpv")
	register(key.PlayerMpvPath, "mpv", "Path or name of the mpv executable")
	register(key.PlayerSocketWaitRetries, 10, "How many times to poll the engine IPC socket before giving up")
	register(key.PlayerPlayWhenReady, true, "Start playback as soon as the engine is ready")
	register(key.PlayerVolume, 1.0, "Initial volume, from 0 to 1")

	register(key.NetworkUserAgent, constant.UserAgentProduct, "Application token used to build the HTTP User-Agent")
	register(key.NetworkTimeout, 30, "HTTP timeout in seconds for manifest requests")

	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, plain, squares, nerd (nerd-font required)")

	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")

	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliVersionCheck, false, "Enable automatic version check")
}
