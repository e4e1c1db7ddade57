package main

import (
	"os"

	"github.com/darkevich777/anime-quiz/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
