// Command footpulse runs the FootPulse academy evaluation server.
//
//	footpulse serve            start the API (SQLite)
//	footpulse serve --memory   start with an in-process store
//	footpulse migrate          apply schema migrations
//	footpulse seed             load the demo academy
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
