package main

import "chemtutor/internal/cli"

func main() {
	cli.Execute()
}
