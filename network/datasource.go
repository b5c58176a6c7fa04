package network

import (
	"fmt"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/sampletvinput/tvplay/constant"
)

// DataSourceFactory builds HTTP access for media sources. Every request it
// issues carries the factory's user agent and reports its transfer to the meter.
type DataSourceFactory struct {
	userAgent string
	meter     *BandwidthMeter
	client    *http.Client
}

// NewDataSourceFactory builds a factory around meter. product is the
// application token placed in front of the user agent.
func NewDataSourceFactory(product string, meter *BandwidthMeter, timeout time.Duration) *DataSourceFactory {
	ua := UserAgent(product)
	return &DataSourceFactory{
		userAgent: ua,
		meter:     meter,
		client: &http.Client{
			Timeout: timeout,
			Transport: &meteredTransport{
				base:      newTransport(),
				userAgent: ua,
				meter:     meter,
			},
		},
	}
}

// UserAgent formats the user agent string for product.
func UserAgent(product string) string {
	return fmt.Sprintf("%s/%s (%s; %s) %s/%s", product, constant.Version, runtime.GOOS, runtime.GOARCH, constant.App, constant.Version)
}

// UserAgent returns the agent string stamped on every request.
func (f *DataSourceFactory) UserAgent() string {
	return f.userAgent
}

// Meter returns the bandwidth meter shared with this factory.
func (f *DataSourceFactory) Meter() *BandwidthMeter {
	return f.meter
}

// Client returns the metered HTTP client.
func (f *DataSourceFactory) Client() *http.Client {
	return f.client
}

func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 16
	t.MaxIdleConnsPerHost = 8
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 30 * time.Second
	return t
}

type meteredTransport struct {
	base      http.RoundTripper
	userAgent string
	meter     *BandwidthMeter
}

func (t *meteredTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)

	started := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	resp.Body = &meteredBody{ReadCloser: resp.Body, meter: t.meter, started: started}
	return resp, nil
}

// meteredBody reports the bytes read from the body once it is closed.
type meteredBody struct {
	io.ReadCloser
	meter    *BandwidthMeter
	started  time.Time
	read     int64
	reported bool
}

func (b *meteredBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.read += int64(n)
	return n, err
}

func (b *meteredBody) Close() error {
	if !b.reported && b.meter != nil {
		b.reported = true
		b.meter.Sample(b.read, time.Since(b.started))
	}
	return b.ReadCloser.Close()
}
