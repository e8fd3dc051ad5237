package main

import (
	"os"

	"horse.fit/newsalert/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
