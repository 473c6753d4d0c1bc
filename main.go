package main

import "github.com/mikaelmoutakis/mytubefeed/cmd"

func main() {
	cmd.Execute()
}
