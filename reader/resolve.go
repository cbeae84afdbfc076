package reader

import (
	"net"
	"net/url"
	"strings"
	"time"
)

// ResolveAudioURL normalizes a bubble audio reference against the API base.
// data: URIs pass through, http URLs of non-local hosts are upgraded to
// https, other absolute URLs pass through and relative references are joined
// to the base.
func ResolveAudioURL(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if hasScheme(ref, "data") {
		return ref
	}

	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		if strings.EqualFold(u.Scheme, "http") && !isLocalHost(u.Hostname()) {
			u.Scheme = "https"
			return u.String()
		}
		return ref
	}

	if strings.HasPrefix(ref, "//") {
		return ResolveAudioURL("https:"+ref, base)
	}
	if base == "" {
		return ref
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}

func hasScheme(s, scheme string) bool {
	return len(s) > len(scheme) && s[len(scheme)] == ':' && strings.EqualFold(s[:len(scheme)], scheme)
}

func isLocalHost(host string) bool {
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified())
}

// AdvanceDelay returns the pause between the end of a bubble and the start
// of the next one at the given speed.
func AdvanceDelay(base, floor time.Duration, speed float64) time.Duration {
	if speed <= 0 {
		speed = 1
	}
	return max(floor, time.Duration(float64(base)/speed))
}
