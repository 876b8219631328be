package main

import "github.com/mcoot/paintergame/internal/cli"

func main() {
	cli.Execute()
}
