package main

import "github.com/speedex-core/speedexd/internal/cli"

func main() {
	cli.Execute()
}
