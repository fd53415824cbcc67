// Command plugin exposes the enum linter to golangci-lint as a Go plugin:
//
//	go build -buildmode=plugin -o enumvalidator.so ./tools/linters/plugin
package main

import (
	"golang.org/x/tools/go/analysis"

	"civicpulse.app/sla/tools/linters/enumvalidator"
)

type AnalyzerPlugin struct{}

func (*AnalyzerPlugin) GetAnalyzers() []*analysis.Analyzer {
	return []*analysis.Analyzer{
		enumvalidator.Analyzer,
	}
}

func New(conf any) ([]*analysis.Analyzer, error) {
	return []*analysis.Analyzer{enumvalidator.Analyzer}, nil
}

// main is required for `go build ./...`; it is unused when built with -buildmode=plugin.
func main() {}
