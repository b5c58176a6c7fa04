package media

import (
	"net/url"

	"github.com/sampletvinput/tvplay/network"
)

// Descriptor identifies what an engine has to load: the protocol, the
// location and the data source factory all I/O must go through.
type Descriptor struct {
	Kind       ContentType
	URI        *url.URL
	DataSource *network.DataSourceFactory
}

// Source is a media source ready to be handed to an engine.
type Source interface {
	Descriptor() Descriptor
}

// ChunkSourceFactory describes how segment requests for adaptive sources are issued.
type ChunkSourceFactory struct {
	Kind       ContentType
	DataSource *network.DataSourceFactory
}

// ExtractorsFactory names the container sniffing strategy used for progressive media.
// An empty Formats list leaves detection to the engine.
type ExtractorsFactory struct {
	Formats []string
}

// DefaultExtractorsFactory lets the engine probe every container it knows.
var DefaultExtractorsFactory = ExtractorsFactory{}

// SmoothStreamingSource loads a Smooth Streaming manifest and its fragments.
type SmoothStreamingSource struct {
	descriptor Descriptor
	manifest   *network.DataSourceFactory
	chunks     ChunkSourceFactory
}

func (s *SmoothStreamingSource) Descriptor() Descriptor { return s.descriptor }

// Manifest returns the factory used to fetch and refresh the manifest.
func (s *SmoothStreamingSource) Manifest() *network.DataSourceFactory { return s.manifest }

// ChunkSource returns the fragment request factory.
func (s *SmoothStreamingSource) ChunkSource() ChunkSourceFactory { return s.chunks }

// DASHSource loads an MPD and its segments.
type DASHSource struct {
	descriptor Descriptor
	manifest   *network.DataSourceFactory
	chunks     ChunkSourceFactory
}

func (s *DASHSource) Descriptor() Descriptor { return s.descriptor }

// Manifest returns the factory used to fetch and refresh the MPD.
func (s *DASHSource) Manifest() *network.DataSourceFactory { return s.manifest }

// ChunkSource returns the segment request factory.
func (s *DASHSource) ChunkSource() ChunkSourceFactory { return s.chunks }

// HLSSource loads an HLS playlist directly through the data source factory.
type HLSSource struct {
	descriptor Descriptor
}

func (s *HLSSource) Descriptor() Descriptor { return s.descriptor }

// ProgressiveSource loads a single container file.
type ProgressiveSource struct {
	descriptor Descriptor
	extractors ExtractorsFactory
}

func (s *ProgressiveSource) Descriptor() Descriptor { return s.descriptor }

// Extractors returns the container detection strategy.
func (s *ProgressiveSource) Extractors() ExtractorsFactory { return s.extractors }

var (
	_ Source = (*SmoothStreamingSource)(nil)
	_ Source = (*DASHSource)(nil)
	_ Source = (*HLSSource)(nil)
	_ Source = (*ProgressiveSource)(nil)
)
