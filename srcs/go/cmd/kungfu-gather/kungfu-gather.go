package main

import (
	"os"

	"github.com/lsds/kungfu-gather/srcs/go/cmd/kungfu-gather/app"
	"github.com/lsds/kungfu-gather/srcs/go/log"
)

func main() {
	if err := app.Execute(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
