package main

import "github.com/andrescamacho/pipeline-go/internal/adapters/cli"

func main() {
	cli.Execute()
}
