package main

import "github.com/aerodeck/flightdeck-cli/cmd"

func main() {
	cmd.Execute()
}
