package main

import "github.com/Tiliavir/penguin-meds/cmd"

func main() {
	cmd.Execute()
}
