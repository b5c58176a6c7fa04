package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/samber/lo"
	"github.com/sampletvinput/tvplay/color"
	"github.com/sampletvinput/tvplay/media"
	"github.com/sampletvinput/tvplay/style"
	"github.com/sampletvinput/tvplay/util"
	"github.com/spf13/cobra"
	"golang.org/x/net/idna"
)

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().StringP("extension", "e", "", "Treat the URI as this container instead of inferring it")
	probeCmd.Flags().BoolP("json", "j", false, "Print as JSON")
	probeCmd.SetOut(os.Stdout)
}

var probeCmd = &cobra.Command{
	Use:   "probe <uri>",
	Short: "Show how a URI would be played, listing HLS variants",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		report, err := probe(cmd.Context(), newResolver(), args[0], lo.Must(cmd.Flags().GetString("extension")))
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			handleErr(enc.Encode(report))
			return
		}
		report.print(cmd.OutOrStdout())
	},
}

type probeReport struct {
	URI       string              `json:"uri"`
	Host      string              `json:"host"`
	Kind      string              `json:"kind"`
	UserAgent string              `json:"user_agent"`
	Playlist  *media.PlaylistInfo `json:"playlist,omitempty"`
}

func probe(ctx context.Context, resolver *media.Resolver, uri, extension string) (*probeReport, error) {
	source, err := resolver.Resolve(uri, extension)
	if err != nil {
		return nil, err
	}

	d := source.Descriptor()
	report := &probeReport{
		URI:       d.URI.Redacted(),
		Host:      displayHost(d.URI.Hostname()),
		Kind:      d.Kind.String(),
		UserAgent: d.DataSource.UserAgent(),
	}

	if hls, ok := source.(*media.HLSSource); ok {
		if report.Playlist, err = hls.Probe(ctx); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// displayHost renders punycode hosts in their unicode form.
func displayHost(host string) string {
	if host == "" {
		return host
	}
	if unicode, err := idna.Display.ToUnicode(host); err == nil {
		return unicode
	}
	return host
}

func (r *probeReport) print(w io.Writer) {
	label := style.Fg(color.Blue)
	_, _ = fmt.Fprintf(w, "%s %s\n", label("URI:"), r.URI)
	if r.Host != "" {
		_, _ = fmt.Fprintf(w, "%s %s\n", label("Host:"), r.Host)
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", label("Kind:"), style.Fg(color.Purple)(r.Kind))
	_, _ = fmt.Fprintf(w, "%s %s\n", label("User agent:"), style.Faint(r.UserAgent))

	pl := r.Playlist
	if pl == nil {
		return
	}

	if !pl.Multivariant {
		live := lo.Ternary(pl.Live, "live", "on demand")
		_, _ = fmt.Fprintf(w, "%s media playlist, %s, target duration %ds, %s\n",
			label("Playlist:"), util.Quantify(pl.Segments, "segment", "segments"), pl.TargetDuration, live)
		return
	}

	_, _ = fmt.Fprintf(w, "%s %s\n", label("Playlist:"), util.Quantify(len(pl.Variants), "variant", "variants"))
	for _, v := range pl.Variants {
		_, _ = fmt.Fprintf(w, "  %s %s %s %s\n",
			style.Bold(fmt.Sprintf("%8.1f kbps", float64(v.Bandwidth)/1000)),
			style.Fg(color.Cyan)(lo.Ternary(v.Resolution != "", v.Resolution, "audio")),
			style.Faint(v.Codecs),
			v.URI,
		)
	}
}
