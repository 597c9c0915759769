// Package certs keeps a self-signed certificate for serving the API over
// HTTPS on a local machine.
package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"slices"
	"time"
)

const (
	// Validity is how long a generated certificate lasts.
	Validity = 365 * 24 * time.Hour
	// RenewBefore regenerates a certificate this close to expiry.
	RenewBefore = 30 * 24 * time.Hour
)

// DefaultHosts are always covered by the certificate.
var DefaultHosts = []string{"localhost", "127.0.0.1", "::1"}

// Store reads and writes server.crt and server.key in one directory.
type Store struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// NewStore returns a store rooted at dir.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, now: time.Now, logger: logger.With("component", "certs")}
}

func (s *Store) certFile() string { return filepath.Join(s.dir, "server.crt") }
func (s *Store) keyFile() string  { return filepath.Join(s.dir, "server.key") }

// Load returns the stored certificate, generating a new one when none exists,
// when it cannot be read, when it is close to expiry or when it does not
// cover every host.
func (s *Store) Load(extraHosts ...string) (tls.Certificate, error) {
	hosts := append(slices.Clone(DefaultHosts), extraHosts...)

	cert, err := tls.LoadX509KeyPair(s.certFile(), s.keyFile())
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.logger.Info("generating self-signed certificate", "dir", s.dir)
	case err != nil:
		s.logger.Warn("regenerating unreadable certificate", "error", err)
	default:
		if reason := s.stale(cert, hosts); reason != "" {
			s.logger.Info("regenerating certificate", "reason", reason)
		} else {
			return cert, nil
		}
	}
	return s.generate(hosts)
}

// stale explains why cert must be replaced, or returns "".
func (s *Store) stale(cert tls.Certificate, hosts []string) string {
	if len(cert.Certificate) == 0 {
		return "empty certificate chain"
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return "unparseable certificate"
	}
	now := s.now()
	if now.Before(leaf.NotBefore) {
		return "not yet valid"
	}
	if now.Add(RenewBefore).After(leaf.NotAfter) {
		return "expiring"
	}
	for _, h := range hosts {
		if err := leaf.VerifyHostname(h); err != nil {
			return "missing host " + h
		}
	}
	return ""
}

func (s *Store) generate(hosts []string) (tls.Certificate, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate directory: %w", err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate private key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := s.now()
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"FinSight"}, CommonName: "localhost"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(Validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to encode private key: %w", err)
	}

	if err := writePEM(s.certFile(), "CERTIFICATE", der); err != nil {
		return tls.Certificate{}, err
	}
	if err := writePEM(s.keyFile(), "EC PRIVATE KEY", keyDER); err != nil {
		return tls.Certificate{}, err
	}
	return tls.LoadX509KeyPair(s.certFile(), s.keyFile())
}

func writePEM(path, blockType string, der []byte) error {
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
