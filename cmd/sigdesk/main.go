package main

import (
	"os"

	"github.com/signaldesk/sigdesk-go/cmd/sigdesk/commands"
)

var version = "dev"

func main() {
	if err := commands.Execute(version); err != nil {
		os.Exit(1)
	}
}
