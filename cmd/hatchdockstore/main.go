package main

import "github.com/mugiliam/hatchdockstore/internal/cli"

func main() {
	cli.Execute()
}
