package main

import "taskmarket/cmd"

func main() {
	cmd.Execute()
}
