// Package media resolves content URIs into engine-ready media sources.
package media

import (
	"net/url"
	"regexp"
	"strings"
)

// ContentType is the container or streaming protocol a URI points at.
type ContentType int

const (
	ContentTypeDASH ContentType = iota
	ContentTypeSmoothStreaming
	ContentTypeHLS
	ContentTypeOther
	ContentTypeRTSP
)

// String returns the content type name.
func (c ContentType) String() string {
	switch c {
	case ContentTypeDASH:
		return "dash"
	case ContentTypeSmoothStreaming:
		return "smoothstreaming"
	case ContentTypeHLS:
		return "hls"
	case ContentTypeOther:
		return "progressive"
	case ContentTypeRTSP:
		return "rtsp"
	default:
		return "unknown"
	}
}

var ismPattern = regexp.MustCompile(`\.isml?(/manifest(\(.+\))?)?$`)

// InferContentType guesses the content type from the URI scheme and path.
func InferContentType(u *url.URL) ContentType {
	if strings.EqualFold(u.Scheme, "rtsp") {
		return ContentTypeRTSP
	}
	return inferFromPath(u.Path)
}

// InferContentTypeFromExtension applies the same rules to a bare extension such as "mpd".
func InferContentTypeFromExtension(ext string) ContentType {
	return inferFromPath("." + strings.TrimPrefix(ext, "."))
}

func inferFromPath(path string) ContentType {
	path = strings.ToLower(path)
	switch {
	case strings.HasSuffix(path, ".mpd"):
		return ContentTypeDASH
	case strings.HasSuffix(path, ".m3u8"):
		return ContentTypeHLS
	case ismPattern.MatchString(path):
		return ContentTypeSmoothStreaming
	default:
		return ContentTypeOther
	}
}
