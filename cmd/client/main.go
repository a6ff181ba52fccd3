package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/omgclient/internal/buildinfo"
	"github.com/dmitrijs2005/omgclient/internal/client/app"
	"github.com/dmitrijs2005/omgclient/internal/client/cli"
	"github.com/dmitrijs2005/omgclient/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("close: %v", err)
		}
	}()

	cli.NewShell(a, os.Stdin, os.Stdout).Run(ctx)

}
