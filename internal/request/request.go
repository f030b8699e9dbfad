// Package request turns the raw bytes of an HTTP-like request into the few
// fields the server acts on: the path, the virtual host, and a short
// whitelist of headers used for logging.
package request

import (
	"bufio"
	"io"
	"net/netip"
	"net/textproto"
	"strconv"
	"strings"
)

// Header prefixes, matched literally and case-sensitively.
const (
	FieldIP        = "X-Forwarded-For: "
	FieldReferer   = "Referer: "
	FieldUserAgent = "User-Agent: "
	FieldHost      = "Host: "
)

// MaxHeaderBytes caps how much of a request is read.
const MaxHeaderBytes = 1 << 20

// Host identifies which virtual host a request is addressed to.
type Host int

const (
	HostNone Host = iota
	HostSite
	HostEncyclopedia
)

func (h Host) String() string {
	switch h {
	case HostSite:
		return "site"
	case HostEncyclopedia:
		return "encyclopedia"
	default:
		return "none"
	}
}

// Domains holds the Host header values of the two virtual hosts.
type Domains struct {
	Site         string
	Encyclopedia string
}

// Request is the parsed form of one request head.
type Request struct {
	// Path is the second token of the start line; HasPath is false when the
	// start line has fewer than two tokens.
	Path    string
	HasPath bool

	Host      Host
	HostValue string

	// IP is the X-Forwarded-For address, invalid when absent or malformed.
	IP        netip.Addr
	Referer   string
	UserAgent string
}

// Parser reads request heads for a fixed pair of virtual hosts.
type Parser struct {
	domains Domains
}

// NewParser returns a parser recognising the given domains.
func NewParser(domains Domains) *Parser {
	return &Parser{domains: domains}
}

// Parse reads lines until a blank line or end of stream. Lines may end in
// CRLF or LF. A read error other than EOF is returned together with the
// request built from the lines read before it.
func (p *Parser) Parse(r io.Reader) (*Request, error) {
	lines, err := readHead(r)
	return p.FromLines(lines), err
}

// FromLines builds a Request from already split lines.
func (p *Parser) FromLines(lines []string) *Request {
	req := &Request{}

	if len(lines) > 0 {
		if tokens := strings.Fields(lines[0]); len(tokens) > 1 {
			req.Path, req.HasPath = tokens[1], true
		}
	}

	if v, ok := field(lines, FieldHost); ok {
		req.HostValue = v
		req.Host = p.matchHost(v)
	}
	if v, ok := field(lines, FieldIP); ok {
		if ip, valid := ParseIPv4(v); valid {
			req.IP = ip
		}
	}
	req.Referer, _ = field(lines, FieldReferer)
	req.UserAgent, _ = field(lines, FieldUserAgent)

	return req
}

func (p *Parser) matchHost(v string) Host {
	switch v {
	case p.domains.Encyclopedia:
		return HostEncyclopedia
	case p.domains.Site:
		return HostSite
	default:
		return HostNone
	}
}

func readHead(r io.Reader) ([]string, error) {
	tp := textproto.NewReader(bufio.NewReader(io.LimitReader(r, MaxHeaderBytes)))

	var lines []string
	for {
		line, err := tp.ReadLine()
		if err != nil {
			if err == io.EOF {
				return lines, nil
			}
			return lines, err
		}
		if line == "" {
			return lines, nil
		}
		lines = append(lines, line)
	}
}

// field returns the remainder of the first line starting with prefix.
func field(lines []string, prefix string) (string, bool) {
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return strings.TrimPrefix(l, prefix), true
		}
	}
	return "", false
}

// ParseIPv4 parses a dotted quad. Anything other than exactly four
// byte-sized decimal octets is rejected.
func ParseIPv4(s string) (netip.Addr, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return netip.Addr{}, false
	}

	var octets [4]byte
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return netip.Addr{}, false
		}
		octets[i] = byte(n)
	}
	return netip.AddrFrom4(octets), true
}
