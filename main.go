package main

import "github.com/kamal-hamza/bx-cli/cmd"

func main() {
	cmd.Execute()
}
