package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/silktown-software/postcode-geocode-demo/internal/eventbus"
	"github.com/silktown-software/postcode-geocode-demo/internal/form"
	"github.com/silktown-software/postcode-geocode-demo/internal/geocode"
	"github.com/silktown-software/postcode-geocode-demo/internal/logging"
	"github.com/silktown-software/postcode-geocode-demo/internal/maps"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var baseURL, env string
	var timeout time.Duration

	flagSet := pflag.NewFlagSet("postcode-lookup", pflag.ContinueOnError)
	flagSet.StringVar(&baseURL, "url", "http://localhost:5000", "base URL of the postcode map server")
	flagSet.DurationVar(&timeout, "timeout", geocode.DefaultTimeout, "per-lookup timeout")
	flagSet.StringVar(&env, "env", "production", "logging environment (development enables debug logs)")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := &geocode.Client{BaseURL: baseURL, Timeout: timeout}
	logger := logging.NewWithWriter(env, os.Stderr)

	var in io.Reader = os.Stdin
	if postcodes := flagSet.Args(); len(postcodes) > 0 {
		in = strings.NewReader(strings.Join(postcodes, "\n"))
	}
	return session(ctx, in, os.Stdout, client, logger)
}

// session drives the form, bus and console map from lines of input.
// A "reset" line resets the map; every other non-blank line is looked up.
func session(ctx context.Context, in io.Reader, out io.Writer, lookup form.Lookup, logger *slog.Logger) error {
	bus := eventbus.New(logger)
	view := maps.NewView(maps.NewConsole(out), maps.Options{Logger: logger})
	if err := view.Bind(bus); err != nil {
		return err
	}
	f := form.New(bus, lookup, &consoleControls{w: out}, logger)
	if err := f.Bind(); err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.EqualFold(line, "reset"):
			f.Reset()
		default:
			f.KeyUp(line)
			if loc, err := f.Submit(ctx, line); err == nil {
				fmt.Fprintf(out, "%s %.6f,%.6f\n", loc.Postcode, loc.Lat, loc.Lng)
			}
		}
	}
	return scanner.Err()
}

type consoleControls struct {
	w io.Writer
}

func (c *consoleControls) SetValue(value string) {}

func (c *consoleControls) SetButtonsEnabled(enabled bool) {}

func (c *consoleControls) ShowError(message string) {
	fmt.Fprintf(c.w, "error: %s\n", message)
}

func (c *consoleControls) HideError() {}
