package main

import (
	"os"

	"github.com/boxwatch/boxwatch/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
