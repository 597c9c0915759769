package certs

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(t *testing.T, cert tls.Certificate) *x509.Certificate {
	t.Helper()
	require.Len(t, cert.Certificate, 1)
	c, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	return c
}

func TestLoadGeneratesCertificate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	store := NewStore(dir, nil)

	cert, err := store.Load("finsight.local")
	require.NoError(t, err)

	c := leaf(t, cert)
	assert.Equal(t, "FinSight", c.Subject.Organization[0])
	for _, host := range []string{"localhost", "127.0.0.1", "::1", "finsight.local"} {
		assert.NoError(t, c.VerifyHostname(host), host)
	}
	assert.True(t, c.NotAfter.After(time.Now().Add(Validity-24*time.Hour)))

	info, err := os.Stat(filepath.Join(dir, "server.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadRegenerates(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(t *testing.T, s *Store)
		hosts  []string
		reuse  bool
	}{
		{
			name:   "valid certificate is reused",
			tamper: func(*testing.T, *Store) {},
			reuse:  true,
		},
		{
			name: "expiring certificate",
			tamper: func(_ *testing.T, s *Store) {
				s.now = func() time.Time { return time.Now().Add(Validity - RenewBefore/2) }
			},
		},
		{
			name: "corrupt certificate file",
			tamper: func(t *testing.T, s *Store) {
				require.NoError(t, os.WriteFile(s.certFile(), []byte("garbage"), 0o600))
			},
		},
		{
			name:   "new host",
			tamper: func(*testing.T, *Store) {},
			hosts:  []string{"api.example.test"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(t.TempDir(), nil)
			first, err := store.Load()
			require.NoError(t, err)
			serial := leaf(t, first).SerialNumber

			tt.tamper(t, store)
			second, err := store.Load(tt.hosts...)
			require.NoError(t, err)

			if tt.reuse {
				assert.Equal(t, serial, leaf(t, second).SerialNumber)
			} else {
				assert.NotEqual(t, serial, leaf(t, second).SerialNumber)
			}
			for _, h := range tt.hosts {
				assert.NoError(t, leaf(t, second).VerifyHostname(h))
			}
		})
	}
}

func TestServesTLS(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	cert, err := store.Load()
	require.NoError(t, err)

	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	ln, err := tls.Listen("tcp", "127.0.0.1:0", cfg)
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_ = conn.(*tls.Conn).Handshake()
		_ = conn.Close()
	}()

	pool := x509.NewCertPool()
	pool.AddCert(leaf(t, cert))
	conn, err := tls.Dial("tcp", ln.Addr().String(), &tls.Config{RootCAs: pool, ServerName: "localhost", MinVersion: tls.VersionTLS12})
	require.NoError(t, err)
	_ = conn.Close()
}
