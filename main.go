// Wayfinder - shortest routes over weighted location graphs.
//
// Wayfinder loads DOT route graphs into a local index and answers
// shortest-path and closest-meeting-point queries from the command line,
// over HTTP and through MCP.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/wayfinder-go/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
