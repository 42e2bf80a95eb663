package main

import "github.com/raysh454/lawtrack/internal/cli"

func main() {
	cli.Execute()
}
