package main

import (
	"context"
	"fmt"

	"dagger/qfagent/internal/dagger"
)

const golangciLintVersion = "v2.8.0"

// lintOpts returns the common GolangcilintOpts used by both CheckLint and FixLint.
// It layers golangci-lint on top of goContainer() so the Go caches are shared
// with the test runs.
func (q *Qfagent) lintOpts() dagger.GolangcilintOpts {
	base := q.goContainer().
		WithExec([]string{
			"go",
			"install",
			fmt.Sprintf("github.com/golangci/golangci-lint/v2/cmd/golangci-lint@%s", golangciLintVersion),
		})

	return dagger.GolangcilintOpts{
		BaseCtr: base,
		Config:  q.Source.File(".golangci.yml"),
	}
}

// CheckLint runs golangci-lint without applying fixes.
//
// +check
func (q *Qfagent) CheckLint(ctx context.Context) (string, error) {
	return dag.Golangcilint(q.Source, q.lintOpts()).Check(ctx)
}

// FixLint runs golangci-lint against the source code with --fix, applying
// automatic fixes where possible, and returns the modified source directory.
func (q *Qfagent) FixLint(ctx context.Context) *dagger.Directory {
	return dag.Golangcilint(q.Source, q.lintOpts()).Lint()
}
