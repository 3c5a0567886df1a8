// Command session-gateway runs the session and identity layer that sits
// between credential sources and the backend resource server.
//
// Usage:
//
//	session-gateway serve  [-config session-gateway.yaml] [-debug]
//	session-gateway login  [-config session-gateway.yaml] [-oauth] [-username EMAIL]
//	session-gateway version
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "serve":
		runServeCommand(os.Args[2:])
	case "login":
		runLoginCommand(os.Args[2:])
	case "version":
		fmt.Println("session-gateway", version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `session-gateway - session and identity layer

Commands:
  serve     Run the session API server
  login     Perform an interactive login and print the session token
  version   Print the version`)
}
