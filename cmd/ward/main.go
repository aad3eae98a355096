package main

import (
	"github.com/ward-launcher/ward/internal/cli"
	"github.com/ward-launcher/ward/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	cli.Execute()
}
