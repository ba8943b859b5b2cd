package common

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Endpoint identifies one remote server instance
type Endpoint struct {
	Host string
	Port int
}

// ParseEndpoint splits a "host:port" string into an Endpoint
func ParseEndpoint(s string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(s))
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: %w", s, err)
	}
	if host == "" {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: empty host", s)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: bad port %q", s, portStr)
	}
	return Endpoint{Host: host, Port: port}, nil
}

// ParseEndpoints parses a list of "host:port" strings, dropping duplicates
func ParseEndpoints(list []string) ([]Endpoint, error) {
	seen := make(map[string]struct{}, len(list))
	endpoints := make([]Endpoint, 0, len(list))
	for _, s := range list {
		if strings.TrimSpace(s) == "" {
			continue
		}
		ep, err := ParseEndpoint(s)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[ep.String()]; ok {
			continue
		}
		seen[ep.String()] = struct{}{}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

// String returns the "host:port" form, which is also the identity of the endpoint
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}
