// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Playback Engine - these keys select and tune the wrapped media engine.
const (
	PlayerEngine            = "player.engine"
	PlayerMpvPath           = "player.mpv_path"
	PlayerSocketWaitRetries = "player.socket_wait_retries"
	PlayerPlayWhenReady     = "player.play_when_ready"
	PlayerVolume            = "player.volume"
)

// Network - these keys configure the shared data source factory.
const (
	NetworkUserAgent = "network.user_agent"
	NetworkTimeout   = "network.timeout"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern the non-TUI application behavior.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
