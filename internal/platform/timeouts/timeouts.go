// Package timeouts defines the shared durations of sparkcards processes.
package timeouts

import "time"

// HealthProbe caps how long a health probe waits for SERVING.
const HealthProbe = 2 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second

// DeleteCascade bounds one deck deletion, both store calls included. It
// applies even after the requesting client disconnects.
const DeleteCascade = 30 * time.Second
