package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/filestash/internal/ctl"
)

func main() {
	if err := ctl.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
