package main

import "github.com/kozaktomas/gatex/cmd"

func main() {
	cmd.Execute()
}
