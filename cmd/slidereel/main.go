package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/fx"

	"github.com/ivlev/slidereel/internal/app"
	"github.com/ivlev/slidereel/internal/config"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "[-] %v\n", err)
		os.Exit(2)
	}

	fx.New(
		fx.Supply(cfg),
		app.Module,
	).Run()
}
