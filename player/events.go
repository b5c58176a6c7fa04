package player

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/sampletvinput/tvplay/network"
	"github.com/sampletvinput/tvplay/util"
	"golang.org/x/exp/slices"
)

// observedProperties are registered with observe_property; the observer id
// is the index plus one.
var observedProperties = []string{
	"pause",
	"idle-active",
	"eof-reached",
	"paused-for-cache",
	"seeking",
	"time-pos",
	"duration",
	"seekable",
	"demuxer-cache-state",
	"track-list",
	"video-params",
	"sub-text",
	"metadata",
	"speed",
	"cache-speed",
	"vo-configured",
}

// propertyState mirrors the mpv properties the engine reports from.
// It is only touched with MPV.mu held.
type propertyState struct {
	pause          bool
	idle           bool
	eof            bool
	pausedForCache bool
	seeking        bool
	loaded         bool
	voConfigured   bool
	seekable       bool

	position float64
	duration float64 // negative while unknown
	cacheEnd float64
	speed    float64

	meter *network.BandwidthMeter
}

func newPropertyState(meter *network.BandwidthMeter) propertyState {
	return propertyState{
		pause:    true,
		idle:     true,
		duration: -1,
		speed:    1,
		meter:    meter,
	}
}

// native maps the cached properties to a PlaybackState.
func (s *propertyState) native() PlaybackState {
	switch {
	case s.idle:
		return StateIdle
	case s.eof:
		return StateEnded
	case !s.loaded, s.pausedForCache, s.seeking:
		return StateBuffering
	default:
		return StateReady
	}
}

func (s *propertyState) bufferedPercentage() int {
	if s.duration <= 0 {
		return 0
	}
	return int(util.Clamp(s.cacheEnd/s.duration*100, 0, 100))
}

func (s *propertyState) timeline() Timeline {
	return Timeline{
		Duration: seconds(s.duration),
		Seekable: s.seekable,
		Live:     s.duration < 0,
	}
}

func seconds(v float64) time.Duration {
	if v < 0 {
		return -1
	}
	return time.Duration(v * float64(time.Second))
}

// apply folds one mpv message into the cache and returns the engine events
// it produces. A state change event is appended whenever the play-when-ready
// flag or the native state moved.
func (s *propertyState) apply(msg ipcMessage) []Event {
	playWhenReady, state := !s.pause, s.native()

	var events []Event
	switch msg.Event {
	case "property-change":
		events = s.applyProperty(msg.Name, msg.Data)
	case "start-file":
		s.loaded, s.eof = false, false
		events = append(events, Event{Kind: EventLoadingChanged, Loading: true})
	case "file-loaded":
		s.loaded = true
		events = append(events, Event{Kind: EventLoadingChanged, Loading: false})
	case "end-file":
		s.loaded = false
		if msg.Reason == "error" {
			reason := msg.FileError
			if reason == "" {
				reason = "unknown error"
			}
			err := &EngineError{Op: "load", Err: errors.New(reason)}
			events = append(events,
				Event{Kind: EventLoadError, Err: err},
				Event{Kind: EventPlayerError, Err: err},
			)
		}
	case "seek":
		events = append(events, Event{Kind: EventPositionDiscontinuity})
	}

	if !s.pause != playWhenReady || s.native() != state {
		events = append(events, Event{
			Kind:          EventPlayerStateChanged,
			PlayWhenReady: !s.pause,
			State:         s.native(),
		})
	}
	return events
}

func (s *propertyState) applyProperty(name string, data json.RawMessage) []Event {
	switch name {
	case "pause":
		s.pause = decodeOr(data, false)
	case "idle-active":
		s.idle = decodeOr(data, false)
	case "eof-reached":
		s.eof = decodeOr(data, false)
	case "seeking":
		s.seeking = decodeOr(data, false)
	case "vo-configured":
		s.voConfigured = decodeOr(data, false)
	case "time-pos":
		s.position = decodeOr(data, 0.0)
	case "paused-for-cache":
		s.pausedForCache = decodeOr(data, false)
		return []Event{{Kind: EventLoadingChanged, Loading: s.pausedForCache}}
	case "duration":
		s.duration = decodeOr(data, -1.0)
		return []Event{{Kind: EventTimelineChanged, Timeline: s.timeline()}}
	case "seekable":
		s.seekable = decodeOr(data, false)
		return []Event{{Kind: EventTimelineChanged, Timeline: s.timeline()}}
	case "demuxer-cache-state":
		var cache struct {
			CacheEnd float64 `json:"cache-end"`
		}
		if json.Unmarshal(data, &cache) == nil {
			s.cacheEnd = cache.CacheEnd
		}
	case "speed":
		s.speed = decodeOr(data, 1.0)
		return []Event{{Kind: EventPlaybackParametersChanged, Params: PlaybackParameters{Speed: float32(s.speed), Pitch: 1}}}
	case "cache-speed":
		if rate := decodeOr(data, 0.0); rate > 0 && s.meter != nil {
			s.meter.SampleRate(rate)
		}
	case "track-list":
		var tracks []mpvTrack
		if json.Unmarshal(data, &tracks) != nil {
			return nil
		}
		return []Event{{Kind: EventTracksChanged, Tracks: trackGroups(tracks)}}
	case "video-params":
		var params struct {
			W      int     `json:"w"`
			H      int     `json:"h"`
			Rotate int     `json:"rotate"`
			Par    float32 `json:"par"`
		}
		if json.Unmarshal(data, &params) != nil || params.W == 0 {
			return nil
		}
		if params.Par == 0 {
			params.Par = 1
		}
		return []Event{{Kind: EventVideoSizeChanged, VideoSize: VideoSize{
			Width:                    params.W,
			Height:                   params.H,
			UnappliedRotationDegrees: params.Rotate,
			PixelWidthHeightRatio:    params.Par,
		}}}
	case "sub-text":
		text := strings.TrimSpace(decodeOr(data, ""))
		var cues []Cue
		if text != "" {
			cues = []Cue{{Text: text, Start: seconds(s.position), End: -1}}
		}
		return []Event{{Kind: EventCues, Cues: cues}}
	case "metadata":
		tags := decodeOr(data, map[string]string(nil))
		if len(tags) == 0 {
			return nil
		}
		return []Event{{Kind: EventMetadata, Metadata: metadataFrames(tags)}}
	}
	return nil
}

// decodeOr unmarshals data, returning fallback for null or mismatched values.
func decodeOr[T any](data json.RawMessage, fallback T) T {
	if len(data) == 0 || string(data) == "null" {
		return fallback
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return fallback
	}
	return v
}

// mpvTrack is one entry of the track-list property.
type mpvTrack struct {
	ID           int     `json:"id"`
	Type         string  `json:"type"`
	Codec        string  `json:"codec"`
	Lang         string  `json:"lang"`
	Selected     bool    `json:"selected"`
	DemuxW       int     `json:"demux-w"`
	DemuxH       int     `json:"demux-h"`
	DemuxFPS     float32 `json:"demux-fps"`
	DemuxBitrate int     `json:"demux-bitrate"`
}

func (t mpvTrack) trackType() (TrackType, bool) {
	switch t.Type {
	case "audio":
		return TrackAudio, true
	case "video":
		return TrackVideo, true
	case "sub":
		return TrackText, true
	default:
		return 0, false
	}
}

func (t mpvTrack) format() Format {
	prefix := t.Type
	if prefix == "sub" {
		prefix = "text"
	}
	return Format{
		ID:        strconv.Itoa(t.ID),
		MimeType:  prefix + "/" + t.Codec,
		Codecs:    t.Codec,
		Language:  t.Lang,
		Bitrate:   t.DemuxBitrate,
		Width:     t.DemuxW,
		Height:    t.DemuxH,
		FrameRate: t.DemuxFPS,
	}
}

// trackGroups groups tracks per renderer in TrackType order.
func trackGroups(tracks []mpvTrack) []TrackGroup {
	var groups [RendererCount]*TrackGroup
	for _, t := range tracks {
		kind, ok := t.trackType()
		if !ok {
			continue
		}
		if groups[kind] == nil {
			groups[kind] = &TrackGroup{Renderer: kind, Selected: -1, Supported: true}
		}
		g := groups[kind]
		if t.Selected {
			g.Selected = len(g.Formats)
		}
		g.Formats = append(g.Formats, t.format())
	}

	var result []TrackGroup
	for _, g := range groups {
		if g != nil {
			result = append(result, *g)
		}
	}
	return result
}

func metadataFrames(tags map[string]string) []MetadataFrame {
	frames := make([]MetadataFrame, 0, len(tags))
	for k, v := range tags {
		frames = append(frames, MetadataFrame{Key: k, Value: v})
	}
	slices.SortFunc(frames, func(a, b MetadataFrame) int { return strings.Compare(a.Key, b.Key) })
	return frames
}
