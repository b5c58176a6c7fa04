package media

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/sampletvinput/tvplay/log"
	"github.com/sampletvinput/tvplay/network"
)

// ErrUnsupportedContainerKind is returned when a URI resolves to a content
// type no source can be built for.
var ErrUnsupportedContainerKind = errors.New("unsupported container kind")

// Resolver turns content URIs into sources. Every source it builds shares
// the resolver's data source factory.
type Resolver struct {
	dataSource *network.DataSourceFactory
}

// NewResolver returns a resolver bound to dataSource.
func NewResolver(dataSource *network.DataSourceFactory) *Resolver {
	return &Resolver{dataSource: dataSource}
}

// DataSource returns the shared data source factory.
func (r *Resolver) DataSource() *network.DataSourceFactory {
	return r.dataSource
}

// Resolve builds the source for rawURI. A non-empty overrideExtension
// replaces the type inferred from the URI.
func (r *Resolver) Resolve(rawURI, overrideExtension string) (Source, error) {
	uri, err := parseURI(rawURI)
	if err != nil {
		return nil, err
	}

	kind := InferContentType(uri)
	if overrideExtension != "" {
		kind = InferContentTypeFromExtension(overrideExtension)
	}

	descriptor := Descriptor{Kind: kind, URI: uri, DataSource: r.dataSource}

	switch kind {
	case ContentTypeSmoothStreaming:
		return &SmoothStreamingSource{
			descriptor: descriptor,
			manifest:   r.dataSource,
			chunks:     ChunkSourceFactory{Kind: kind, DataSource: r.dataSource},
		}, nil
	case ContentTypeDASH:
		log.Debugf("created dash media source for %s", uri.Redacted())
		return &DASHSource{
			descriptor: descriptor,
			manifest:   r.dataSource,
			chunks:     ChunkSourceFactory{Kind: kind, DataSource: r.dataSource},
		}, nil
	case ContentTypeHLS:
		return &HLSSource{descriptor: descriptor}, nil
	case ContentTypeOther:
		return &ProgressiveSource{descriptor: descriptor, extractors: DefaultExtractorsFactory}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContainerKind, kind)
	}
}

// parseURI accepts absolute URLs and bare local paths.
func parseURI(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty uri")
	}
	if strings.ContainsAny(raw, "\x00\n\r") {
		return nil, errors.New("invalid control characters in uri")
	}
	if strings.HasPrefix(raw, "-") {
		return nil, errors.New("uri must not start with '-'")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse uri: %w", err)
	}
	if u.Scheme == "" {
		abs, err := filepath.Abs(raw)
		if err != nil {
			return nil, fmt.Errorf("resolve path: %w", err)
		}
		u = &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	}
	return u, nil
}
