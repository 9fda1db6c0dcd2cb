package main

import "github.com/iksnae/command-deck/cmd"

func main() {
	cmd.Execute()
}
