package main

import "github.com/agentic-research/assetcat/cmd"

func main() {
	cmd.Execute()
}
