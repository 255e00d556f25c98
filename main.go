package main

import "ytbot/cmd"

func main() {
	cmd.Execute()
}
