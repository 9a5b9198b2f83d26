package main

import "github.com/devicelab-dev/farm-runner/pkg/cli"

func main() {
	cli.Execute()
}
