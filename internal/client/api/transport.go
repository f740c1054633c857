package api

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// TLSFiles names the optional PEM files used to reach an HTTPS API.
// Empty fields fall back to the system defaults.
type TLSFiles struct {
	// CAFile is an extra root CA to trust.
	CAFile string
	// CertFile and KeyFile form an optional client certificate.
	CertFile string
	KeyFile  string
}

// NewHTTPClient builds the HTTP client used to talk to the API.
// With no TLS files set it uses the default transport settings.
func NewHTTPClient(files TLSFiles, timeout time.Duration) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if files.CAFile != "" || files.CertFile != "" || files.KeyFile != "" {
		tlsConfig, err := loadTLSConfig(files)
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = tlsConfig
	}

	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

func loadTLSConfig(files TLSFiles) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if files.CAFile != "" {
		caCert, err := os.ReadFile(files.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to parse CA cert")
		}
		cfg.RootCAs = pool
	}

	if (files.CertFile == "") != (files.KeyFile == "") {
		return nil, errors.New("client cert and key must be set together")
	}
	if files.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(files.CertFile, files.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert/key: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

// loggingTransport stamps each request with a request id and logs the
// round trip. Header values are never logged.
type loggingTransport struct {
	next http.RoundTripper
	log  *zap.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	id := req.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
		req.Header.Set(RequestIDHeader, id)
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	fields := []zap.Field{
		zap.String("request_id", id),
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Bool("authorized", req.Header.Get("Authorization") != ""),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		t.log.Warn("request failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	t.log.Debug("request completed", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}
