package main

import "github.com/kuse-dev/cowork/internal/cli"

func main() {
	cli.Execute()
}
