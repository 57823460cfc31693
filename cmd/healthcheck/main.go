// Package main probes the study service health endpoint and exits non-zero
// when it is not serving.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	healthcheckcmd "github.com/sparkcards/sparkcards/internal/cmd/healthcheck"
	entrypoint "github.com/sparkcards/sparkcards/internal/platform/cmd"
)

func main() {
	cfg, err := healthcheckcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceHealthcheck))

	if err := healthcheckcmd.Run(context.Background(), cfg, os.Stdout); err != nil {
		log.Fatalf("unhealthy: %v", err)
	}
}
