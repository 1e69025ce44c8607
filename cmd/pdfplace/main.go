package main

import (
	"fmt"
	"os"

	"github.com/digitorus/pdfplace/cli"
)

func main() {
	if len(os.Args) < 2 {
		cli.Usage()
	}

	switch os.Args[1] {
	case "place":
		cli.PlaceCommand()
	case "info":
		cli.InfoCommand()
	case "submit":
		cli.SubmitCommand()
	case "-h", "--help", "help":
		cli.Usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		cli.Usage()
	}
}
