package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/net/proxy"
)

// Proxy types accepted by NewProxyHTTPClient.
const (
	ProxyNone   = "none"
	ProxySystem = "system"
	ProxyManual = "manual"
	ProxySOCKS5 = "socks5"
)

// NewProxyHTTPClient builds an *http.Client for the given proxy type.
//
//   - "none" dials directly
//   - "system" honours HTTP_PROXY / HTTPS_PROXY / NO_PROXY
//   - "manual" uses an HTTP proxy at addr
//   - "socks5" dials through a SOCKS5 proxy at addr
//
// An empty kind behaves like "system".
func NewProxyHTTPClient(kind, addr string) (*http.Client, error) {
	switch kind {
	case "", ProxySystem:
		return &http.Client{Transport: newTransport(http.ProxyFromEnvironment)}, nil
	case ProxyNone:
		return &http.Client{Transport: newTransport(nil)}, nil
	case ProxyManual:
		if addr == "" {
			return nil, fmt.Errorf("manual proxy requires an address")
		}
		proxyURL, err := url.Parse("http://" + addr)
		if err != nil {
			return nil, fmt.Errorf("parse proxy address %q: %w", addr, err)
		}
		return &http.Client{Transport: newTransport(http.ProxyURL(proxyURL))}, nil
	case ProxySOCKS5:
		if addr == "" {
			return nil, fmt.Errorf("socks5 proxy requires an address")
		}
		dialer, err := proxy.SOCKS5("tcp", addr, nil, &net.Dialer{KeepAlive: keepAlive})
		if err != nil {
			return nil, fmt.Errorf("socks5 proxy %s: %w", addr, err)
		}
		transport := newTransport(nil)
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, address string) (net.Conn, error) {
				return dialer.Dial(network, address)
			}
		}
		return &http.Client{Transport: transport}, nil
	default:
		return nil, fmt.Errorf("unknown proxy type %q", kind)
	}
}
