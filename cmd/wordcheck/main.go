// Command wordcheck verifies a list of words against a running verifier.
//
// Words are read whitespace-separated from -input (or stdin), sent as
// concurrent rate-limited requests, and summarised as JSON on stdout.
//
// Usage:
//
//	go run ./cmd/wordcheck -files animals.txt,fruit.txt [-action C] [-input words.txt]
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"

	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/client"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/protocol"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	addr := flag.String("addr", "", "verifier address (overrides client.addr)")
	files := flag.String("files", "", "comma-separated dictionary files")
	action := flag.String("action", string(protocol.ActionQuery), "Q to query, C to challenge")
	input := flag.String("input", "-", "word list file, - for stdin")
	concurrency := flag.Int("concurrency", 8, "requests in flight")
	quiet := flag.Bool("quiet", false, "hide the progress bar")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, "text")
	if *addr != "" {
		cfg.Client.Addr = *addr
	}

	act := protocol.Action(strings.ToUpper(*action))
	if act != protocol.ActionQuery && act != protocol.ActionChallenge {
		fmt.Fprintf(os.Stderr, "unknown action %q\n", *action)
		os.Exit(2)
	}
	if *files == "" {
		fmt.Fprintln(os.Stderr, "-files is required")
		os.Exit(2)
	}

	words, err := readWords(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading words: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var progress func()
	if !*quiet {
		bar := progressbar.NewOptions(len(words),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Verifying words..."),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
		defer func() {
			bar.Finish()
			fmt.Fprintln(os.Stderr)
		}()
		progress = func() { bar.Add(1) }
	}

	c := client.New(cfg.Client)
	result, err := c.Batch(ctx, act, strings.Split(*files, ","), words, *concurrency, progress)
	if err != nil {
		slog.Warn("batch interrupted", "error", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "writing summary: %v\n", err)
		os.Exit(1)
	}
}

func readWords(path string) ([]string, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var words []string
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		words = append(words, scanner.Text())
	}
	return words, scanner.Err()
}
