package main

import "github.com/addistalk/addistalk/cmd"

func main() {
	cmd.Execute()
}
