package ssdp

import (
	"strconv"
	"strings"
	"time"
)

// searchRequest is a parsed M-SEARCH query.
type searchRequest struct {
	// target is the ST header value.
	target string

	// mx is the raw MX header value, empty when absent.
	mx string
}

// parseSearchRequest parses an SSDP datagram. It returns false when the
// datagram is not an M-SEARCH request.
func parseSearchRequest(data []byte) (searchRequest, bool) {
	lines := strings.Split(string(data), "\r\n")
	if len(lines) == 0 {
		return searchRequest{}, false
	}
	if strings.TrimSpace(lines[0]) != "M-SEARCH * HTTP/1.1" {
		return searchRequest{}, false
	}

	var req searchRequest
	for _, line := range lines[1:] {
		if line == "" {
			break
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(name)) {
		case "ST":
			req.target = strings.TrimSpace(value)
		case "MX":
			req.mx = strings.TrimSpace(value)
		}
	}
	return req, true
}

// matchesTarget reports whether the search target addresses this device.
func (r searchRequest) matchesTarget() bool {
	return r.target == TargetAll || r.target == ServiceTarget
}

// replyDelayBound computes the exclusive upper bound for the randomized
// reply delay. The MX value is parsed as a full decimal integer and folded
// into the configured ceiling; a malformed or absent MX uses the ceiling
// alone.
func replyDelayBound(mx string, maxDelay time.Duration) time.Duration {
	ceiling := int(maxDelay / time.Second)

	if mx != "" {
		if v, err := strconv.Atoi(mx); err == nil && v >= 0 {
			return time.Duration(v%(ceiling+1)+1) * time.Second
		}
	}
	return time.Duration(ceiling+1) * time.Second
}
