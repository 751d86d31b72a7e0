package main

import "bookwise/internal/cli"

func main() {
	cli.Execute()
}
