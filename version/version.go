// Package version checks for newer tvplay releases.
package version

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/metafates/gache"
	"github.com/sampletvinput/tvplay/constant"
	"github.com/sampletvinput/tvplay/filesystem"
	"github.com/sampletvinput/tvplay/network"
	"github.com/sampletvinput/tvplay/util"
	"github.com/sampletvinput/tvplay/where"
)

const (
	repository  = "sampletvinput/tvplay"
	latestURL   = "https://api.github.com/repos/" + repository + "/releases/latest"
	releasesURL = "https://github.com/" + repository + "/releases/tag/v"
	lookupLimit = 5 * time.Second
)

var latestCache = gache.New[string](&gache.Options{
	Path:       filepath.Join(where.Cache(), "version.json"),
	Lifetime:   48 * time.Hour,
	FileSystem: &filesystem.GacheFs{},
})

// Latest returns the newest released version, served from a two day cache
// when possible.
func Latest(ctx context.Context) (string, error) {
	cached, expired, err := latestCache.Get()
	if err != nil {
		return "", err
	}
	if !expired && cached != "" {
		return cached, nil
	}

	latest, err := fetchLatest(ctx, latestURL)
	if err != nil {
		return "", err
	}
	_ = latestCache.Set(latest)
	return latest, nil
}

func fetchLatest(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupLimit)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", network.UserAgent(constant.UserAgentProduct))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer util.Ignore(resp.Body.Close)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("latest release: unexpected status %d", resp.StatusCode)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", err
	}
	if release.TagName == "" {
		return "", errors.New("latest release: empty tag name")
	}
	return strings.TrimPrefix(release.TagName, "v"), nil
}
