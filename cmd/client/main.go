// Package main runs the ProductDesk interactive client: a shell that logs
// in to the product API and browses or edits the catalogue.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atinyakov/productdesk/internal/client/api"
	"github.com/atinyakov/productdesk/internal/client/app"
	"github.com/atinyakov/productdesk/internal/config"
	"github.com/atinyakov/productdesk/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	options, err := config.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if options.ShowVersion {
		fmt.Printf("ProductDesk Client\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return
	}

	log := logger.New()
	closeLog, err := initLogger(log, options.LogLevel, options.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer closeLog()
	zapLogger := log.Log

	httpClient, err := api.NewHTTPClient(api.TLSFiles{
		CAFile:   options.CAFile,
		CertFile: options.CertFile,
		KeyFile:  options.KeyFile,
	}, options.Timeout)
	if err != nil {
		zapLogger.Fatal("failed to build HTTP client", zap.Error(err))
	}

	client := api.New(options.BaseURL, api.WithHTTPClient(httpClient), api.WithLogger(zapLogger))
	view := app.NewTerminalView(os.Stdout)
	controller := app.NewController(client, view, zapLogger)

	var in app.LineReader
	if term.IsTerminal(int(os.Stdin.Fd())) {
		lr := newLinerReader()
		defer func() { _ = lr.Close() }()
		in = lr
	} else {
		in = newPlainReader(os.Stdin, os.Stdout)
	}

	zapLogger.Debug("starting shell", zap.String("base_url", client.BaseURL()))
	shell := app.NewShell(controller, view, in, os.Stdout)
	if err := shell.Run(context.Background()); err != nil {
		zapLogger.Error("shell stopped", zap.Error(err))
	}
}

// initLogger logs to stderr, or appends to file when one is configured so
// that log lines stay out of the shell.
func initLogger(l *logger.Logger, level, file string) (func(), error) {
	if file == "" {
		if err := l.Init(level); err != nil {
			return nil, err
		}
		return func() { _ = l.Log.Sync() }, nil
	}

	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	if err := l.InitWriter(level, f); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		_ = l.Log.Sync()
		f.Close()
	}, nil
}
