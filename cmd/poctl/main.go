package main

import "github.com/PPA-BE/Orders-At-Peak/cmd/poctl/cli"

func main() {
	cli.Execute()
}
