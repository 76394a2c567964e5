package main

import (
	"log"

	"github.com/routerops/routerops/cmd/routerctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
