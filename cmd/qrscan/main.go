// Command qrscan runs still images through the scan pipeline and prints the
// decoded certificate payloads.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"time"

	"github.com/anime-shed/certscan-go/internal/capture"
	"github.com/anime-shed/certscan-go/internal/detector"
	"github.com/anime-shed/certscan-go/internal/frame"
	"github.com/anime-shed/certscan-go/internal/logger"
	"github.com/anime-shed/certscan-go/internal/scanner"

	"github.com/sirupsen/logrus"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run keeps payloads on stdout; logs and per-file errors go to stderr
func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("qrscan", flag.ContinueOnError)
	flags.SetOutput(stderr)
	profile := flags.String("profile", scanner.ProfileDefault, "scan profile: default, mobile or enhanced")
	interval := flags.Duration("interval", 0, "scan tick interval (profile default when zero)")
	timeout := flags.Duration("timeout", 2*time.Second, "give up on an image after this long")
	noGate := flags.Bool("no-gate", false, "skip the finder pattern search and always run the decoder")
	maxPixels := flags.Int("max-pixels", frame.DefaultMaxPixels, "refuse images with more pixels than this")
	verbose := flags.Bool("v", false, "log scanner activity to stderr")
	flags.Usage = func() {
		fmt.Fprintf(stderr, "usage: qrscan [flags] <image>...\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return 2
	}

	logger.Logger.SetOutput(stderr)
	if *verbose {
		logger.Logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.Logger.SetLevel(logrus.WarnLevel)
	}

	opts, err := scanner.ProfileOptions(*profile)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	opts = opts.WithInterval(*interval)
	if *noGate {
		opts = opts.WithDetector(opts.Detector.WithoutFinderGate())
	}

	failed := 0
	for _, path := range flags.Args() {
		payload, err := scanFile(path, opts, *timeout, *maxPixels)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		if flags.NArg() > 1 {
			fmt.Fprintf(stdout, "%s: %s\n", path, payload)
		} else {
			fmt.Fprintln(stdout, payload)
		}
	}
	if failed > 0 {
		return 1
	}
	return 0
}

var errNoCode = errors.New("no QR code found")

func scanFile(path string, opts scanner.Options, timeout time.Duration, maxPixels int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	img, _, err := frame.DecodeImage(f, maxPixels)
	f.Close()
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	results := make(chan string, 1)
	failures := make(chan string, 1)
	host := scanner.HostFuncs{
		Scan:  func(payload string) { results <- payload },
		Error: func(message string) { failures <- message },
	}

	backend := detector.NewZXingBackend(opts.Profile == scanner.ProfileEnhanced)
	s := scanner.New(capture.NewStillDevice(img), detector.New(backend, opts.Detector), host, opts)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Start(ctx); err != nil {
		return "", err
	}

	select {
	case payload := <-results:
		return payload, nil
	case message := <-failures:
		return "", errors.New(message)
	case <-ctx.Done():
		return "", errNoCode
	}
}
