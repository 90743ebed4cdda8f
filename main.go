package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gspreadsheet/pkg/emulator"

	log "github.com/sirupsen/logrus"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose logging")
	listenAddress := flag.String("listen", ":8080", "Address to serve the feeds on")
	account := flag.String("account", "user@example.com:secret", "Seed account as email:password")
	sheet := flag.String("sheet", "key/od6/Sheet1", "Seed worksheet as key/worksheet/title")
	rows := flag.Int("rows", 100, "Row count of the seed worksheet")
	cols := flag.Int("cols", 20, "Column count of the seed worksheet")

	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	em := emulator.New()
	if *account != "" {
		email, password, ok := strings.Cut(*account, ":")
		if !ok {
			log.Fatalf("invalid -account %q, expected email:password", *account)
		}
		em.AddAccount(email, password)
	}
	if *sheet != "" {
		parts := strings.SplitN(*sheet, "/", 3)
		if len(parts) != 3 {
			log.Fatalf("invalid -sheet %q, expected key/worksheet/title", *sheet)
		}
		em.AddWorksheet(parts[0], parts[1], parts[2], *rows, *cols)
		log.Infof("serving cells feed %s", emulator.CellsFeedPath(parts[0], parts[1]))
	}

	go startServer(*listenAddress, em.Handler())

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	<-signalChan
	log.Info("Signalled, shutting down")
}

func startServer(addr string, router http.Handler) {
	server := http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
	}
	log.Infof("listening for HTTP on: %s", server.Addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("ListenAndServeError", err)
	}
}
