// Package images downloads store product images.
package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/trustscan/backend/internal/domain"
	"github.com/trustscan/backend/internal/logger"
	"github.com/trustscan/backend/internal/metrics"
)

const (
	// MaxImageBytes bounds a single downloaded image.
	MaxImageBytes = 5 << 20
	fetchTimeout  = 15 * time.Second
	imageAPI      = "images"
)

// ErrBlockedAddress is returned when an image URL resolves to a loopback,
// private, link-local or otherwise non-public address.
var ErrBlockedAddress = errors.New("image host resolves to a non-public address")

// Fetcher downloads images over http and https.
type Fetcher struct {
	httpClient *http.Client
	logger     logger.Logger
	metrics    *metrics.Metrics
}

// NewFetcher creates an image fetcher. A nil httpClient uses PublicClient.
func NewFetcher(httpClient *http.Client, log logger.Logger, m *metrics.Metrics) *Fetcher {
	if httpClient == nil {
		httpClient = PublicClient()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Fetcher{
		httpClient: httpClient,
		logger:     log.With(logger.Component("images")),
		metrics:    m,
	}
}

// FetchImage downloads rawURL and returns its bytes and detected content type.
// Responses that are not images are rejected.
func (f *Fetcher) FetchImage(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, "", err
	}

	start := time.Now()
	data, contentType, err := f.fetch(ctx, rawURL)
	result := "success"
	if err != nil {
		result = "error"
		f.logger.Warn("image fetch failed", logger.String("url", rawURL), logger.Error(err))
	}
	f.metrics.ObserveUpstream(imageAPI, result, time.Since(start))
	return data, contentType, err
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	req.Header.Set("User-Agent", "TrustScan/1.0")
	req.Header.Set("Accept", "image/*")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, ErrBlockedAddress) {
			return nil, "", fmt.Errorf("%w: %w", domain.ErrInvalidRequest, ErrBlockedAddress)
		}
		return nil, "", fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("%w: image status %d", domain.ErrUpstreamFailure, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read image: %v", domain.ErrUpstreamFailure, err)
	}
	if len(data) > MaxImageBytes {
		return nil, "", fmt.Errorf("%w: image larger than %d bytes", domain.ErrUpstreamFailure, MaxImageBytes)
	}

	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return nil, "", fmt.Errorf("%w: not an image (%s)", domain.ErrUpstreamFailure, detected.String())
	}
	return data, detected.String(), nil
}

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: image url must be an absolute http(s) url", domain.ErrInvalidRequest)
	}
	return nil
}

// PublicClient returns an http.Client that only connects to public addresses.
// The check runs on every dial, so redirects and DNS answers pointing at
// internal hosts are refused as well.
func PublicClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: refuseNonPublic,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &http.Client{Timeout: fetchTimeout, Transport: transport}
}

func refuseNonPublic(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || !IsPublicIP(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

// IsPublicIP reports whether ip is a routable unicast address outside the
// loopback, private, link-local and shared (100.64.0.0/10) ranges.
func IsPublicIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() {
		return false
	}
	if v4 := ip.To4(); v4 != nil {
		// carrier-grade NAT and "this network"
		if v4[0] == 100 && v4[1]&0xc0 == 64 || v4[0] == 0 {
			return false
		}
	}
	return true
}
