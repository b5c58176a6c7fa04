package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/lo"
	"github.com/sampletvinput/tvplay/config"
	"github.com/sampletvinput/tvplay/key"
	"github.com/sampletvinput/tvplay/log"
	"github.com/sampletvinput/tvplay/media"
	"github.com/sampletvinput/tvplay/network"
	"github.com/sampletvinput/tvplay/player"
	"github.com/sampletvinput/tvplay/tui"
	"github.com/sampletvinput/tvplay/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const engineMPV = "mpv"

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().StringP("extension", "e", "", "Treat the URI as this container instead of inferring it (mpd, m3u8, ism, mp4, ...)")
	playCmd.Flags().Float64P("volume", "V", 1, "Initial volume, from 0 to 1")
	lo.Must0(viper.BindPFlag(key.PlayerVolume, playCmd.Flags().Lookup("volume")))

	playCmd.Flags().Bool("no-tui", false, "Log playback events instead of showing the control screen")
	playCmd.Flags().Bool("no-video", false, "Play audio only")
}

var playCmd = &cobra.Command{
	Use:     "play <uri>",
	Short:   "Play a stream",
	Example: "  tvplay play https://example.com/live/master.m3u8\n  tvplay play --extension mpd https://example.com/manifest",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(play(cmd.Context(), args[0], playOptions{
			extension: lo.Must(cmd.Flags().GetString("extension")),
			noTUI:     lo.Must(cmd.Flags().GetBool("no-tui")),
			noVideo:   lo.Must(cmd.Flags().GetBool("no-video")),
		}))
	},
}

type playOptions struct {
	extension string
	noTUI     bool
	noVideo   bool
}

// newResolver builds the resolver every command shares its data source
// factory and bandwidth meter through.
func newResolver() *media.Resolver {
	return media.NewResolver(network.NewDataSourceFactory(
		viper.GetString(key.NetworkUserAgent),
		network.DefaultBandwidthMeter,
		config.NetworkTimeout(),
	))
}

func play(ctx context.Context, uri string, options playOptions) error {
	if engine := viper.GetString(key.PlayerEngine); engine != engineMPV {
		return fmt.Errorf("unsupported engine %q", engine)
	}

	mpvPath := viper.GetString(key.PlayerMpvPath)
	checkEngine(mpvPath)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver := newResolver()
	engine, err := player.StartMPV(ctx, player.MPVOptions{
		Path:              mpvPath,
		SocketWaitRetries: viper.GetInt(key.PlayerSocketWaitRetries),
		NoVideo:           options.noVideo,
		Meter:             resolver.DataSource().Meter(),
	})
	if err != nil {
		return err
	}

	p := player.New(engine, resolver, uri, options.extension)
	defer func() {
		if err := p.Release(); err != nil {
			log.Warn(err)
		}
	}()

	diag := diagnostics{}
	p.SetInternalErrorListener(diag)
	p.SetInfoListener(diag)

	if options.noTUI || !util.IsTerminal() {
		return playHeadless(ctx, p)
	}

	return tui.Run(ctx, &tui.Options{
		Player:        p,
		Volume:        config.Volume(),
		PlayWhenReady: viper.GetBool(key.PlayerPlayWhenReady),
	})
}

// playHeadless prepares p and blocks until playback ends, fails, or ctx is
// cancelled.
func playHeadless(ctx context.Context, p *player.DemoPlayer) error {
	h := newHeadless(os.Stdout)
	p.AddListener(h)
	p.AddMetadataListener(h)
	p.RegisterCallback(h)
	defer func() {
		p.RemoveListener(h)
		p.RemoveMetadataListener(h)
		p.UnregisterCallback(h)
	}()

	if err := p.Prepare(ctx); err != nil {
		return err
	}
	if err := p.SetVolume(config.Volume()); err != nil {
		log.Warn(err)
	}
	if err := p.SetPlayWhenReady(viper.GetBool(key.PlayerPlayWhenReady)); err != nil {
		return err
	}

	select {
	case err := <-h.done:
		return err
	case <-ctx.Done():
		return nil
	}
}
