package main

import "github.com/dayuer/nanobus/cmd"

func main() {
	cmd.Execute()
}
