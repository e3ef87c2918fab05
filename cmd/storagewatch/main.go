package main

import "storage-watch/internal/cli"

func main() {
	cli.Execute()
}
