package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/nhle/mailclient/internal/theme"
)

func main() {
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, theme.ErrorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
