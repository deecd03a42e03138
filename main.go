package main

import "github.com/bsaid97/geomcheck/cmd"

func main() {
	cmd.Execute()
}
