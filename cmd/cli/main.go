package main

import "github.com/rsc-forge/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
