package main

import (
	"log"

	"github.com/churnml/churnd/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		log.Fatalf("churnd: %v", err)
	}
}
