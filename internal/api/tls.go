package api

import (
	"crypto/tls"
	"fmt"
	"os"
	"sync"
	"time"
)

// TLSConfig names the certificate and key the API serves with.
type TLSConfig struct {
	CertFile string
	KeyFile  string
}

var tlsConfig *TLSConfig

// InitTLS enables TLS with the given certificate and key. Empty paths fall
// back to ZBXPORT_TLS_CERT and ZBXPORT_TLS_KEY. TLS stays off unless both
// are known.
func InitTLS(certFile, keyFile string) {
	if certFile == "" {
		certFile = os.Getenv("ZBXPORT_TLS_CERT")
	}
	if keyFile == "" {
		keyFile = os.Getenv("ZBXPORT_TLS_KEY")
	}
	tlsConfig = nil
	if certFile != "" && keyFile != "" {
		tlsConfig = &TLSConfig{CertFile: certFile, KeyFile: keyFile}
	}
}

// IsTLSEnabled returns true if TLS is configured.
func IsTLSEnabled() bool {
	return tlsConfig != nil && tlsConfig.CertFile != "" && tlsConfig.KeyFile != ""
}

// GetTLSConfig returns the current TLS configuration (may be nil).
func GetTLSConfig() *TLSConfig {
	return tlsConfig
}

// SetTLSConfigForTest allows tests to set TLS config directly.
func SetTLSConfigForTest(cfg *TLSConfig) {
	tlsConfig = cfg
}

// certReloader serves the key pair on disk, reloading it when either file
// changes so rotated certificates apply without a restart.
type certReloader struct {
	files TLSConfig

	mu      sync.Mutex
	cert    *tls.Certificate
	certMod time.Time
	keyMod  time.Time
}

func newCertReloader(files TLSConfig) (*certReloader, error) {
	r := &certReloader{files: files}
	if _, err := r.current(); err != nil {
		return nil, err
	}
	return r, nil
}

func modTime(path string) (time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

// current returns the loaded pair, reloading it first if the files moved
// on. A failed reload keeps serving the previous pair.
func (r *certReloader) current() (*tls.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	certMod, err1 := modTime(r.files.CertFile)
	keyMod, err2 := modTime(r.files.KeyFile)
	if r.cert != nil && (err1 != nil || err2 != nil || (certMod.Equal(r.certMod) && keyMod.Equal(r.keyMod))) {
		return r.cert, nil
	}

	cert, err := tls.LoadX509KeyPair(r.files.CertFile, r.files.KeyFile)
	if err != nil {
		if r.cert != nil {
			return r.cert, nil
		}
		return nil, fmt.Errorf("load TLS certificate: %w", err)
	}
	r.cert, r.certMod, r.keyMod = &cert, certMod, keyMod
	return r.cert, nil
}

func (r *certReloader) getCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return r.current()
}

// LoadTLSConfig checks the configured key pair and returns a tls.Config
// serving it. It returns nil without error when TLS is not enabled.
func LoadTLSConfig() (*tls.Config, error) {
	if !IsTLSEnabled() {
		return nil, nil
	}
	r, err := newCertReloader(*tlsConfig)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		GetCertificate: r.getCertificate,
		MinVersion:     tls.VersionTLS12,
	}, nil
}
