package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/productdesk/internal/client/app"
	"github.com/peterh/liner"
)

// linerReader reads from an interactive terminal with line editing and
// history. Passwords are not echoed.
type linerReader struct {
	line        *liner.State
	historyFile string
}

func newLinerReader() *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &linerReader{line: line}
	if dir, err := os.UserConfigDir(); err == nil {
		r.historyFile = filepath.Join(dir, "productdesk", "history")
		if f, err := os.Open(r.historyFile); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}
	return r
}

func (r *linerReader) Prompt(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", mapLinerErr(err)
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

func (r *linerReader) PasswordPrompt(prompt string) (string, error) {
	input, err := r.line.PasswordPrompt(prompt)
	if err != nil {
		return "", mapLinerErr(err)
	}
	return input, nil
}

// Close saves the history and restores the terminal.
func (r *linerReader) Close() error {
	if r.historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err == nil {
			if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
				_, _ = r.line.WriteHistory(f)
				f.Close()
			}
		}
	}
	return r.line.Close()
}

func mapLinerErr(err error) error {
	if errors.Is(err, liner.ErrPromptAborted) {
		return app.ErrAborted
	}
	return err
}

// plainReader reads newline-separated input from a pipe or file.
type plainReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func newPlainReader(in io.Reader, out io.Writer) *plainReader {
	return &plainReader{scanner: bufio.NewScanner(in), out: out}
}

func (r *plainReader) Prompt(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *plainReader) PasswordPrompt(prompt string) (string, error) {
	return r.Prompt(prompt)
}
