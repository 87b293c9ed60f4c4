package main

import (
	"github.com/host-exporters/cmd/exporter"
)

func main() {
	exporter.Execute(exporter.NewCommand(exporter.Multi()))
}
