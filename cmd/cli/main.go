package main

import (
	"github.com/mchmarny/defaultrisk/pkg/cli"
)

func main() {
	cli.Execute()
}
