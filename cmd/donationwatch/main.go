package main

import "donation-tracker/internal/cli"

func main() {
	cli.Execute()
}
