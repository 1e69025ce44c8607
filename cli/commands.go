package cli

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/digitorus/pdfplace/composite"
	"github.com/digitorus/pdfplace/config"
	"github.com/digitorus/pdfplace/transport"
)

var osExit = os.Exit

var (
	ConfigFile string
	Verbose    bool
)

func Usage() {
	fmt.Printf("Usage: %s <command> [options] <args>\n\n", os.Args[0])
	fmt.Println("Commands:")
	fmt.Println("  place   Place a signature image on a PDF page")
	fmt.Println("  info    Show the pages of a PDF file")
	fmt.Println("  submit  Place a signature and submit the result")
	fmt.Println("")
	fmt.Printf("Use '%s <command> -h' for command-specific help\n", os.Args[0])
	osExit(1)
}

// LoadConfig reads path into config.Settings. When path is empty the file at
// config.DefaultLocation is used if present, the defaults otherwise.
func LoadConfig(path string) (config.Config, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultLocation); err != nil {
			config.Settings = config.Default()
			return config.Settings, nil
		}
		path = config.DefaultLocation
	}
	if err := config.Read(path); err != nil {
		return config.Config{}, err
	}
	return config.Settings, nil
}

// NewFetcher returns a fetcher configured from c.
func NewFetcher(c config.Config) *transport.HTTPFetcher {
	f := transport.NewHTTPFetcher(c.Fetch.Timeout)
	if !c.Fetch.Cache {
		f.Cache = nil
	}
	f.BaseDir = c.Fetch.BaseDir
	f.MaxBytes = c.Fetch.MaxBytes
	f.Token = c.API.Token
	return f
}

// NewSubmitter returns a submitter configured from c.
func NewSubmitter(c config.Config) *transport.MultipartSubmitter {
	s := transport.NewMultipartSubmitter(&http.Client{Timeout: c.Fetch.Timeout}, c.API.BaseURL, c.API.Token)
	s.CompletePath = c.API.CompletePath
	s.Method = c.API.Method
	s.Status = c.API.Status
	return s
}

// CompositeOptions returns the writer options configured in c.
func CompositeOptions(c config.Config) *composite.Options {
	return &composite.Options{
		CompressLevel: c.Composite.CompressLevel,
		UpdateInfo:    c.Composite.UpdateInfo,
		Producer:      c.Composite.Producer,
		Validate:      c.Composite.Validate,
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func mustLoadConfig() (config.Config, bool) {
	c, err := LoadConfig(ConfigFile)
	if err != nil {
		log.Println(err)
		osExit(1)
		return config.Config{}, false
	}
	return c, true
}
