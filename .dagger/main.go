// qfagent CI
//
// Package main provides reproducible tests and checks locally and in GitHub actions.
package main

import (
	"context"

	"dagger/qfagent/internal/dagger"
)

// Qfagent is the main module for the qfagent CI pipeline
type Qfagent struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new qfagent CI module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".direnv", ".qfagent", "build", "tmp"]
	source *dagger.Directory,
) *Qfagent {
	return &Qfagent{
		Source: source,
	}
}

// goContainer returns a Debian Bookworm-based Go container with the project
// source mounted and the module caches shared between runs.
func (q *Qfagent) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-bookworm").
		WithEnvVariable("CGO_ENABLED", "0").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", q.Source)
}

// Test runs the unit tests via "go test"
//
// +check
func (q *Qfagent) Test(ctx context.Context) (string, error) {
	return q.goContainer().
		WithExec([]string{"go", "test", "-v", "./..."}).
		Stdout(ctx)
}

// Fuzz runs the frame splitter fuzz target for a bounded amount of time.
func (q *Qfagent) Fuzz(
	ctx context.Context,
	// How long the fuzzer runs.
	//
	// +default="30s"
	fuzztime string,
) (string, error) {
	return q.goContainer().
		WithExec([]string{"go", "test", "./pkg/sse/", "-run", "^$", "-fuzz", "FuzzSplitterChunkInvariance", "-fuzztime", fuzztime}).
		Stdout(ctx)
}
