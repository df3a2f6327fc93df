package main

import "github.com/djcass44/bake-your-own/cmd"

var version = "dev"

func main() {
	cmd.Execute(version)
}
