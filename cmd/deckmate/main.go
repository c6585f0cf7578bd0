package main

import (
	"github.com/deckmate/deckmate/internal/cli"
)

func main() {
	cli.Execute()
}
