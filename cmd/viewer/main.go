package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"exchange-rate-viewer/internal/client"
	"exchange-rate-viewer/internal/config"
	"exchange-rate-viewer/internal/viewer"
	"exchange-rate-viewer/pkg/logger"
)

func main() {
	currency := flag.String("currency", "", "currency code to look up, e.g. EUR")
	start := flag.String("start", "", "start date (YYYY-MM-DD) for a historical search")
	end := flag.String("end", "", "end date (YYYY-MM-DD) for a historical search")
	page := flag.Int("page", 1, "page of historical results to show")
	server := flag.String("server", "", "proxy base URL (overrides VIEWER_SERVER_URL)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, "text", os.Stderr)

	baseURL := cfg.Viewer.ServerURL
	if *server != "" {
		baseURL = *server
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher := client.NewFetcher(baseURL, cfg.Viewer.Timeout, log)
	controller := viewer.NewController(fetcher, log)
	defer controller.Close()

	if *currency != "" {
		if err := oneShot(ctx, controller, os.Stdout, *currency, *start, *end, *page); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := interactive(ctx, controller, os.Stdin, os.Stdout); err != nil {
		log.Error("Viewer stopped", "error", err)
		os.Exit(1)
	}
}

// oneShot runs a single search and reports whether it ended in an error.
func oneShot(ctx context.Context, c *viewer.Controller, out io.Writer, currency, start, end string, page int) error {
	var args []string
	if start != "" || end != "" {
		args = []string{start, end, fmt.Sprint(page)}
	}
	return newSession(c, out).search(ctx, currency, args)
}

// interactive reads commands until quit, end of input or a signal. It
// returns output and input errors.
func interactive(ctx context.Context, c *viewer.Controller, in io.Reader, out io.Writer) error {
	s := newSession(c, out)
	if _, err := fmt.Fprintln(out, "Commands: <CODE> | <CODE> <START> <END> [PAGE] | next | prev | page <N> | clear | quit"); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		if _, err := fmt.Fprint(out, "> "); err != nil {
			return err
		}
		if !scanner.Scan() || ctx.Err() != nil {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		quit, err := s.execute(ctx, scanner.Text())
		if err != nil || quit {
			return err
		}
	}
}
