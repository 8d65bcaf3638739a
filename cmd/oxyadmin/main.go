package main

import "github.com/oxyadmin/oxyadmin/internal/cli"

func main() {
	cli.Execute()
}
