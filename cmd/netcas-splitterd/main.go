// Command netcas-splitterd runs the adaptive cache/RDMA-backend request
// splitter as a standalone daemon, exposing its state over Prometheus
// metrics.
package main

import (
	"fmt"
	"os"

	"github.com/netcas/splitter/pkg/splitter"
)

func main() {
	app, err := splitter.NewApp()
	if err != nil {
		panic("failed to create an instance of the netcas-splitterd app")
	}

	if err := app.Main(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
