// Command notebookd serves a reactive notebook over HTTP and WebSocket.
package main

import (
	"fmt"
	"os"

	"github.com/AJeffs1/reactive-notebook/pkg/server"
)

func main() {
	srv, err := server.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "notebookd: %v\n", err)
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "notebookd: %v\n", err)
		os.Exit(1)
	}
}
