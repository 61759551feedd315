package main

import "github.com/Amaayu/Social-media-automaton/internal/cli"

func main() {
	cli.Execute()
}
