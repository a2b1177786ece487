package gate

import (
	"net"
	"strings"
)

// ClientKey identifies the caller for rate limiting: the first X-Forwarded-For
// entry if the request came through a proxy, the remote host otherwise.
func ClientKey(remoteAddr, forwardedFor string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
