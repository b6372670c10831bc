package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/roffe/godiag/cmd/godiag/cmd"
	"golang.org/x/sync/errgroup"

	// Init protocols
	_ "github.com/roffe/godiag/pkg/canbus"
	_ "github.com/roffe/godiag/pkg/kwp1281"
	_ "github.com/roffe/godiag/pkg/kwp2000"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, os.Interrupt)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return cmd.Execute(gctx)
	})
	g.Go(func() error {
		select {
		case s := <-quitChan:
			log.Printf("got %v, exiting", s)
			cancel()
			go func() {
				// Failsafe if a bus read never returns
				<-time.After(45 * time.Second)
				log.Fatal("took to long to shutdown, forcefully exiting")
			}()
		case <-gctx.Done():
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		os.Exit(1)
	}
}
