package main

import "github.io/infrasutra/speedydraft/internal/cli"

func main() {
	cli.Execute()
}
