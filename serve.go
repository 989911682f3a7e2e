package main

import (
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"volleyladder/internal/back"
	"volleyladder/internal/config"
	"volleyladder/internal/web"
)

func serve(b *back.Back, conf *config.Config) error {
	done := make(chan struct{})
	signaled := make(chan os.Signal, 1)
	signal.Notify(signaled, syscall.SIGINT, syscall.SIGTERM)

	server := web.NewServer(b, conf.WebAddr)

	var wg sync.WaitGroup
	go b.Run(&wg, done)
	go server.Serve(&wg, done)

	sig := <-signaled
	log.Printf("received signal %d", sig)
	close(done)
	wg.Wait()

	log.Print("shutdown complete")

	return nil
}
