package main

import (
	"ordertracker/cmd/ordertrackerctl/cmd"
)

func main() {
	cmd.Execute()
}
