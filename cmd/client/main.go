package main

import (
	"context"
	"log"

	"github.com/advn1/rback/internal/client/cli"
	"github.com/advn1/rback/internal/client/config"
)

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app, err := cli.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(context.Background())

}
