package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"
)

// maxPlaylistSize bounds how much of a playlist response is read.
const maxPlaylistSize = 4 << 20

// Variant is one rendition advertised by an HLS playlist.
type Variant struct {
	Bandwidth  int    `json:"bandwidth"`
	Codecs     string `json:"codecs,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	URI        string `json:"uri"`
}

// PlaylistInfo summarises an HLS playlist.
type PlaylistInfo struct {
	Multivariant   bool      `json:"multivariant"`
	Variants       []Variant `json:"variants"`
	Segments       int       `json:"segments,omitempty"`
	TargetDuration int       `json:"target_duration,omitempty"`
	Live           bool      `json:"live"`
}

// Probe fetches the playlist through the source's data source factory and
// describes its variants. A media playlist yields a single variant pointing
// at the source URI.
func (s *HLSSource) Probe(ctx context.Context) (*PlaylistInfo, error) {
	d := s.descriptor
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URI.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build playlist request: %w", err)
	}

	resp, err := d.DataSource.Client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch playlist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch playlist: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPlaylistSize))
	if err != nil {
		return nil, fmt.Errorf("read playlist: %w", err)
	}

	return parsePlaylist(body, d.URI.String())
}

func parsePlaylist(body []byte, uri string) (*PlaylistInfo, error) {
	pl, err := playlist.Unmarshal(body)
	if err != nil {
		return nil, fmt.Errorf("parse playlist: %w", err)
	}

	switch p := pl.(type) {
	case *playlist.Multivariant:
		info := &PlaylistInfo{Multivariant: true}
		for _, v := range p.Variants {
			info.Variants = append(info.Variants, Variant{
				Bandwidth:  v.Bandwidth,
				Codecs:     strings.Join(v.Codecs, ","),
				Resolution: v.Resolution,
				URI:        v.URI,
			})
		}
		return info, nil
	case *playlist.Media:
		return &PlaylistInfo{
			Variants:       []Variant{{URI: uri}},
			Segments:       len(p.Segments),
			TargetDuration: p.TargetDuration,
			Live:           !p.Endlist,
		}, nil
	default:
		return nil, fmt.Errorf("parse playlist: unknown playlist type %T", pl)
	}
}
