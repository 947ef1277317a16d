package main

import "github.com/Mohsinsiddi/infinity/cmd"

func main() {
	cmd.Execute()
}
