// Package netproxy builds HTTP clients that can dial through a SOCKS5 proxy.
package netproxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// NewClient returns a client with the given timeout. When socksAddr is set,
// connections are dialed through that SOCKS5 proxy.
func NewClient(socksAddr string, timeout time.Duration) (*http.Client, error) {
	socksAddr = strings.TrimSpace(socksAddr)
	if socksAddr == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("netproxy: socks5 %s: %w", socksAddr, err)
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		},
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}
