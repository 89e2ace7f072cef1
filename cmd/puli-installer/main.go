package main

import "github.com/puli/installer/internal/cli"

func main() {
	cli.Execute()
}
