// Package main is the entry point for the clients command, which manages
// the OAuth2 clients registered with the authorization backend.
package main

import (
	"log/slog"
	"os"

	"github.com/keyxmakerx/identity/cmd/clients/app"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := app.NewRootCmd().Execute(); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
