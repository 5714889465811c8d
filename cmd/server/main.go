// Package main implements the todo-api command: the HTTP server for the
// task tracker plus its database migration and password hashing helpers.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
