package main

import (
	"github.com/scrumdeck/scrumdeck/internal/cli"
)

func main() {
	cli.Execute()
}
