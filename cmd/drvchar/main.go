package main

import "github.com/edp1096/drvchar/cmd/drvchar/cmd"

func main() {
	cmd.Execute()
}
