package main

import "github.com/sarchlab/tracebuf/tracebuf/cmd"

func main() {
	cmd.Execute()
}
