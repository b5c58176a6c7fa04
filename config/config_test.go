package config

import (
	"testing"

	"github.com/sampletvinput/tvplay/filesystem"
	"github.com/sampletvinput/tvplay/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Config Setup", t, func() {
		Convey("Should initialize without error", func() {
			err := Setup()
			So(err, ShouldBeNil)
		})

		Convey("Should have default values populated", func() {
			_ = Setup()
			for name := range Default {
				So(viper.Get(name), ShouldNotBeNil)
			}
			So(viper.GetString(key.PlayerEngine), ShouldEqual, "mpv")
		})

		Convey("EnvKeyReplacer should convert dots to underscores", func() {
			result := EnvKeyReplacer.Replace("player.play_when_ready")
			So(result, ShouldEqual, "player_play_when_ready")
		})
	})
}

func TestField(t *testing.T) {
	Convey("Given the volume field", t, func() {
		field := Default[key.PlayerVolume]

		Convey("Its env name should carry the application prefix", func() {
			So(field.Env(), ShouldEqual, "TVPLAY_PLAYER_VOLUME")
		})

		Convey("Its type name should be float64", func() {
			So(field.typeName(), ShouldEqual, "float64")
		})
	})
}

func TestVolume(t *testing.T) {
	Convey("Given a configured volume", t, func() {
		defer viper.Set(key.PlayerVolume, 1.0)

		Convey("Values above one are clamped", func() {
			viper.Set(key.PlayerVolume, 3.5)
			So(Volume(), ShouldEqual, float32(1))
		})

		Convey("Negative values are clamped to zero", func() {
			viper.Set(key.PlayerVolume, -1)
			So(Volume(), ShouldEqual, float32(0))
		})

		Convey("Values in range are kept", func() {
			viper.Set(key.PlayerVolume, 0.5)
			So(Volume(), ShouldEqual, float32(0.5))
		})
	})
}

func TestPretty(t *testing.T) {
	Convey("Given the engine field", t, func() {
		_ = Setup()
		field := Default[key.PlayerEngine]

		Convey("Pretty lists key, env and values", func() {
			pretty := field.Pretty()
			So(pretty, ShouldContainSubstring, key.PlayerEngine)
			So(pretty, ShouldContainSubstring, "TVPLAY_PLAYER_ENGINE")
			So(pretty, ShouldContainSubstring, "mpv")
		})

		Convey("JSON carries current and default values", func() {
			raw, err := field.MarshalJSON()
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, `"default":"mpv"`)
			So(string(raw), ShouldContainSubstring, `"type":"string"`)
		})
	})
}
