package main

import "github.com/kozaktomas/player-portraits/cmd"

func main() {
	cmd.Execute()
}
