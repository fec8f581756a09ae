// Package httpx holds the shared client for outbound calls (payment
// gateway, geocoding). One pooled client so slow upstreams reuse
// connections instead of piling up new ones.
package httpx

import (
	"net"
	"net/http"
	"time"
)

var shared = &http.Client{
	// callers with tighter deadlines wrap their context; this is the
	// ceiling
	Timeout: 15 * time.Second,
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     2 * time.Minute,
	},
}

func Client() *http.Client { return shared }
