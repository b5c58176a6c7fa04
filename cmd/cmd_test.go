package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sampletvinput/tvplay/config"
	"github.com/sampletvinput/tvplay/constant"
	"github.com/sampletvinput/tvplay/key"
	"github.com/sampletvinput/tvplay/media"
	"github.com/sampletvinput/tvplay/network"
	"github.com/sampletvinput/tvplay/player"
	. "github.com/smartystreets/goconvey/convey"
)

const masterPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-STREAM-INF:BANDWIDTH=1280000,CODECS="avc1.4d401f,mp4a.40.2",RESOLUTION=1280x720
720p.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=640000,CODECS="avc1.4d401e,mp4a.40.2",RESOLUTION=640x360
360p.m3u8
`

func TestParseValue(t *testing.T) {
	Convey("Given registered settings", t, func() {
		Convey("Integers are parsed", func() {
			v, err := parseValue(config.Default[key.NetworkTimeout], []string{"12"})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 12)
		})

		Convey("Floats are parsed", func() {
			v, err := parseValue(config.Default[key.PlayerVolume], []string{"0.5"})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 0.5)
		})

		Convey("Booleans are parsed", func() {
			v, err := parseValue(config.Default[key.PlayerPlayWhenReady], []string{"false"})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, false)
		})

		Convey("Strings are taken as is", func() {
			v, err := parseValue(config.Default[key.PlayerMpvPath], []string{"/opt/mpv/bin/mpv"})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, "/opt/mpv/bin/mpv")
		})

		Convey("Malformed values are rejected", func() {
			_, err := parseValue(config.Default[key.NetworkTimeout], []string{"soon"})
			So(err, ShouldNotBeNil)
			_, err = parseValue(config.Default[key.PlayerVolume], nil)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestUnknownKey(t *testing.T) {
	Convey("Unknown keys suggest the closest one", t, func() {
		_, err := lookupField("player.volme")
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, key.PlayerVolume)
	})
}

func TestEnvNames(t *testing.T) {
	Convey("Every setting is exposed through the environment", t, func() {
		names := envNames()
		So(names, ShouldContain, "TVPLAY_PLAYER_MPV_PATH")
		So(names, ShouldContain, "TVPLAY_NETWORK_USER_AGENT")
		So(names, ShouldHaveLength, len(config.Default)+1)
	})
}

func TestProbe(t *testing.T) {
	Convey("Given a playlist server", t, func() {
		var userAgent string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userAgent = r.UserAgent()
			_, _ = fmt.Fprint(w, masterPlaylist)
		}))
		defer server.Close()

		resolver := media.NewResolver(network.NewDataSourceFactory(constant.UserAgentProduct, &network.BandwidthMeter{}, time.Second))

		Convey("HLS sources list their variants", func() {
			report, err := probe(context.Background(), resolver, server.URL+"/live/master.m3u8", "")
			So(err, ShouldBeNil)
			So(report.Kind, ShouldEqual, "hls")
			So(userAgent, ShouldStartWith, constant.UserAgentProduct+"/")
			So(report.Playlist, ShouldNotBeNil)
			So(report.Playlist.Multivariant, ShouldBeTrue)
			So(report.Playlist.Variants, ShouldHaveLength, 2)
			So(report.Playlist.Variants[0].Resolution, ShouldEqual, "1280x720")

			var out bytes.Buffer
			report.print(&out)
			So(out.String(), ShouldContainSubstring, "2 variants")
			So(out.String(), ShouldContainSubstring, "360p.m3u8")
		})

		Convey("Other sources are only resolved", func() {
			report, err := probe(context.Background(), resolver, server.URL+"/movie.mpd", "")
			So(err, ShouldBeNil)
			So(report.Kind, ShouldEqual, "dash")
			So(report.Playlist, ShouldBeNil)
		})

		Convey("Unsupported kinds fail", func() {
			_, err := probe(context.Background(), resolver, "rtsp://camera.local/stream", "")
			So(errors.Is(err, media.ErrUnsupportedContainerKind), ShouldBeTrue)
		})
	})
}

func TestDisplayHost(t *testing.T) {
	Convey("Punycode hosts are shown in unicode", t, func() {
		So(displayHost("xn--bcher-kva.example"), ShouldEqual, "bücher.example")
		So(displayHost("cdn.example.com"), ShouldEqual, "cdn.example.com")
		So(displayHost(""), ShouldEqual, "")
	})
}

func TestHeadless(t *testing.T) {
	Convey("Given a headless printer", t, func() {
		var out bytes.Buffer
		h := newHeadless(&out)

		Convey("Ending playback finishes it", func() {
			h.OnStateChanged(true, player.StateReady)
			h.OnStateChanged(true, player.StateEnded)
			So(<-h.done, ShouldBeNil)
			So(out.String(), ShouldContainSubstring, "playing")
			So(out.String(), ShouldContainSubstring, "ended")
		})

		Convey("The first error wins and later ones do not block", func() {
			h.OnError(errors.New("first"))
			h.OnError(errors.New("second"))
			So((<-h.done).Error(), ShouldEqual, "first")
		})
	})
}

func TestInstallHint(t *testing.T) {
	Convey("Install hints depend on the platform", t, func() {
		So(installHint(constant.Darwin), ShouldContainSubstring, "brew")
		So(installHint(constant.Linux), ShouldContainSubstring, "apt")
		So(installHint(constant.Windows), ShouldContainSubstring, "scoop")
		So(installHint("plan9"), ShouldBeEmpty)
		So(missingEngine("mpv", "plan9"), ShouldContainSubstring, "Engine not found")
	})
}
