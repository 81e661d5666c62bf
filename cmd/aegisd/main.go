package main

import "github.com/stackbound/aegis/cmd/aegisd/cmd"

func main() {
	cmd.Execute()
}
