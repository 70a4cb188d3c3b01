package main

import "github.com/agentic-research/keeper/cmd"

func main() {
	cmd.Execute()
}
