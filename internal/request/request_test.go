package request

import (
	"errors"
	"io"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDomains = Domains{Site: "localhost:7878", Encyclopedia: "mycology.localhost:7878"}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantPath  string
		hasPath   bool
		wantHost  Host
		wantIP    string
		referer   string
		userAgent string
	}{
		{
			name: "full request with CRLF",
			raw: "GET /agaricales HTTP/1.1\r\n" +
				"Host: mycology.localhost:7878\r\n" +
				"X-Forwarded-For: 203.0.113.9\r\n" +
				"Referer: https://example.org/\r\n" +
				"User-Agent: curl/8.4.0\r\n\r\n",
			wantPath:  "/agaricales",
			hasPath:   true,
			wantHost:  HostEncyclopedia,
			wantIP:    "203.0.113.9",
			referer:   "https://example.org/",
			userAgent: "curl/8.4.0",
		},
		{
			name:     "LF endings and site host",
			raw:      "GET /index.html HTTP/1.0\nHost: localhost:7878\n\n",
			wantPath: "/index.html",
			hasPath:  true,
			wantHost: HostSite,
		},
		{
			name:     "stream ends without blank line",
			raw:      "GET / HTTP/1.1\r\nHost: localhost:7878",
			wantPath: "/",
			hasPath:  true,
			wantHost: HostSite,
		},
		{
			name:     "missing path token",
			raw:      "GET\r\nHost: localhost:7878\r\n\r\n",
			wantHost: HostSite,
		},
		{
			name:     "unknown host",
			raw:      "GET / HTTP/1.1\r\nHost: example.com\r\n\r\n",
			wantPath: "/",
			hasPath:  true,
			wantHost: HostNone,
		},
		{
			name:     "host match is case-sensitive",
			raw:      "GET / HTTP/1.1\r\nHost: LOCALHOST:7878\r\nhost: localhost:7878\r\n\r\n",
			wantPath: "/",
			hasPath:  true,
			wantHost: HostNone,
		},
		{
			name:     "no host line",
			raw:      "GET / HTTP/1.1\r\n\r\n",
			wantPath: "/",
			hasPath:  true,
			wantHost: HostNone,
		},
		{
			name:     "malformed ip downgrades to anonymous",
			raw:      "GET / HTTP/1.1\r\nX-Forwarded-For: 10.0.0.256\r\n\r\n",
			wantPath: "/",
			hasPath:  true,
		},
		{
			name:      "first matching header wins",
			raw:       "GET / HTTP/1.1\r\nUser-Agent: first\r\nUser-Agent: second\r\n\r\n",
			wantPath:  "/",
			hasPath:   true,
			userAgent: "first",
		},
		{
			name:     "headers after blank line are ignored",
			raw:      "GET / HTTP/1.1\r\n\r\nHost: localhost:7878\r\n",
			wantPath: "/",
			hasPath:  true,
			wantHost: HostNone,
		},
		{
			name: "empty input",
			raw:  "",
		},
	}

	parser := NewParser(testDomains)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := parser.Parse(strings.NewReader(tt.raw))
			require.NoError(t, err)

			assert.Equal(t, tt.hasPath, req.HasPath)
			assert.Equal(t, tt.wantPath, req.Path)
			assert.Equal(t, tt.wantHost, req.Host)
			if tt.wantIP == "" {
				assert.False(t, req.IP.IsValid())
			} else {
				assert.Equal(t, netip.MustParseAddr(tt.wantIP), req.IP)
			}
			assert.Equal(t, tt.referer, req.Referer)
			assert.Equal(t, tt.userAgent, req.UserAgent)
		})
	}
}

type failingReader struct {
	data io.Reader
	err  error
}

func (f *failingReader) Read(p []byte) (int, error) {
	n, err := f.data.Read(p)
	if err == io.EOF {
		return n, f.err
	}
	return n, err
}

func TestParseReadError(t *testing.T) {
	boom := errors.New("connection reset")
	r := &failingReader{data: strings.NewReader("GET /x HTTP/1.1\r\nHost: localhost:7878\r\n"), err: boom}

	req, err := NewParser(testDomains).Parse(r)
	require.ErrorIs(t, err, boom)
	require.NotNil(t, req)
	assert.Equal(t, "/x", req.Path)
	assert.Equal(t, HostSite, req.Host)
}

func TestParseIPv4(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"127.0.0.1", true},
		{"255.255.255.255", true},
		{"1.2.3", false},
		{"1.2.3.4.5", false},
		{"1.2.3.-4", false},
		{"1.2.3.x", false},
		{"1.2.3.4, 5.6.7.8", false},
		{"", false},
		{"::1", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ip, ok := ParseIPv4(tt.in)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.valid, ip.IsValid())
			if tt.valid {
				assert.Equal(t, tt.in, ip.String())
			}
		})
	}
}

func TestHostString(t *testing.T) {
	assert.Equal(t, "site", HostSite.String())
	assert.Equal(t, "encyclopedia", HostEncyclopedia.String())
	assert.Equal(t, "none", HostNone.String())
}
