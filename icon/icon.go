// Package icon renders UI symbols in the variant selected by configuration.
package icon

import (
	"github.com/sampletvinput/tvplay/key"
	"github.com/spf13/viper"
)

const (
	emoji   = "emoji"
	nerd    = "nerd"
	plain   = "plain"
	squares = "squares"
)

// AvailableVariants returns a slice of all registered icon style identifiers.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain, squares}
}

// Icon identifies a symbol in the registry.
type Icon int

const (
	Success Icon = iota
	Fail
	Progress
	Playing
	Paused
	Preparing
	Buffering
	Ended
	Idle
)

type iconDef struct {
	emoji   string
	nerd    string
	plain   string
	squares string
}

func (d *iconDef) Get() string {
	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	case squares:
		return d.squares
	default:
		return ""
	}
}

var icons = map[Icon]*iconDef{
	Success:   {emoji: "🎉", nerd: "", plain: "✓", squares: "🟩"},
	Fail:      {emoji: "💀", nerd: "", plain: "✗", squares: "🟥"},
	Progress:  {emoji: "⏳", nerd: "", plain: "…", squares: "🟨"},
	Playing:   {emoji: "▶️", nerd: "", plain: ">", squares: "🟩"},
	Paused:    {emoji: "⏸️", nerd: "", plain: "||", squares: "🟨"},
	Preparing: {emoji: "🛠️", nerd: "", plain: "~", squares: "🟦"},
	Buffering: {emoji: "🌀", nerd: "", plain: "@", squares: "🟪"},
	Ended:     {emoji: "🏁", nerd: "", plain: "#", squares: "⬛"},
	Idle:      {emoji: "💤", nerd: "", plain: "-", squares: "⬜"},
}

// Get returns the rendered string for a specified Icon identifier from the global registry.
func Get(i Icon) string {
	def, ok := icons[i]
	if !ok {
		return ""
	}
	return def.Get()
}
