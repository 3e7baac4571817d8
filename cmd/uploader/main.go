// Command uploader sends documents to scan2cal: presign, direct PUT to object
// storage, confirm. Each file succeeds or fails on its own.
package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"scan2cal/calendar-app/internal/client"
	"scan2cal/calendar-app/internal/logging"
)

func main() {
	apiURL := flag.String("api", envOr("SCAN2CAL_API", "http://localhost:8080"), "API base URL")
	token := flag.String("token", os.Getenv("SCAN2CAL_TOKEN"), "bearer token (default $SCAN2CAL_TOKEN)")
	verbose := flag.Bool("v", false, "log each request failure")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] file.pdf [file.json ...]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 || *token == "" {
		flag.Usage()
		os.Exit(2)
	}

	level := "error"
	if *verbose {
		level = "debug"
	}
	log := logging.New(os.Stderr, level, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files := make([]client.File, 0, flag.NArg())
	failed := 0
	for _, path := range flag.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", path, err)
			failed++
			continue
		}
		files = append(files, client.File{Name: filepath.Base(path), ContentType: contentTypeOf(path), Data: data})
	}

	c := client.New(*apiURL, *token, client.WithLogger(log))
	for _, r := range c.UploadFiles(ctx, files) {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", r.Name, r.Err)
			failed++
			continue
		}
		fmt.Printf("OK   %s -> %s (upload %s, text at %s)\n", r.Name, r.Key, r.Upload.ID, r.Upload.CleanKey)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func contentTypeOf(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".json":
		return "application/json"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return strings.TrimSpace(strings.SplitN(ct, ";", 2)[0])
	}
	return "application/octet-stream"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
