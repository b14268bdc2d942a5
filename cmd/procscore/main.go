package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/srodi/procscore/cmd/procscore/cmd"
)

func main() {
	cmd.Execute()
}
