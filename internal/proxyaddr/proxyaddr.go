// Package proxyaddr normalizes proxy address strings.
package proxyaddr

import (
	"errors"
	"strings"
)

// ErrInvalidAddress is returned when an address cannot be normalized.
var ErrInvalidAddress = errors.New("proxyaddr: invalid address")

// Normalize strips a scheme prefix from a proxy address, leaving host:port.
// "http://proxy.corp:3128" becomes "proxy.corp:3128"; an address without a
// scheme is returned unchanged. Blank input is rejected.
func Normalize(address string) (string, error) {
	if strings.TrimSpace(address) == "" {
		return "", ErrInvalidAddress
	}

	// Everything after the last "//" is the host:port part. This handles
	// http://, https://, socks5:// and any future scheme the same way.
	parts := strings.Split(address, "//")
	return parts[len(parts)-1], nil
}
