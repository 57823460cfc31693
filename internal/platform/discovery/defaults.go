// Package discovery centralizes in-network address conventions.
package discovery

import (
	"strconv"
	"strings"
)

const (
	// ServiceStudy is the study session service identity.
	ServiceStudy = "study"
	// ServicePostgres is the optional PostgreSQL deck store.
	ServicePostgres = "postgres"
	// ServiceJaeger is the trace collector identity.
	ServiceJaeger = "jaeger"
)

var grpcPorts = map[string]int{
	ServiceStudy: 8095,
}

var httpPorts = map[string]int{
	ServiceStudy:  8096,
	ServiceJaeger: 4318,
}

// DefaultGRPCAddr returns the canonical in-network gRPC address for a service.
func DefaultGRPCAddr(service string) string {
	return defaultAddr(strings.TrimSpace(service), grpcPorts)
}

// DefaultHTTPAddr returns the canonical in-network HTTP address for a service.
func DefaultHTTPAddr(service string) string {
	return defaultAddr(strings.TrimSpace(service), httpPorts)
}

// OrDefaultGRPCAddr returns value when set, otherwise the service convention.
func OrDefaultGRPCAddr(value, service string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return DefaultGRPCAddr(service)
}

// OrDefaultHTTPAddr returns value when set, otherwise the service convention.
func OrDefaultHTTPAddr(value, service string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return DefaultHTTPAddr(service)
}

// PostgresDSN returns the in-network DSN for database name when no explicit
// DSN is configured.
func PostgresDSN(value, database string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	database = strings.TrimSpace(database)
	if database == "" {
		database = "sparkcards"
	}
	return "postgres://" + ServicePostgres + ":5432/" + database + "?sslmode=disable"
}

func defaultAddr(service string, ports map[string]int) string {
	port, ok := ports[service]
	if !ok || port <= 0 {
		return ""
	}
	return service + ":" + strconv.Itoa(port)
}
