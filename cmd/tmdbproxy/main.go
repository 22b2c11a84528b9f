package main

import "github.com/vietddude/tmdbproxy/internal/cli"

func main() {
	cli.Execute()
}
