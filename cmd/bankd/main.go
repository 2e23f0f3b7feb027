package main

import "github.com/securebank/bankd/internal/cli"

func main() {
	cli.Execute()
}
