// Package app wires the study service runtime: storage, the session, the
// HTTP API and the gRPC health endpoint.
package app
