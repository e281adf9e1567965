package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/crypto/acme/autocert"

	"election-service/internal/config"
	"election-service/internal/util"
)

var ErrNoCertificate = errors.New("no certificate available")

// TLSManager picks the serving certificate: ACME when AutoCert is on, then the
// configured key pair, then (outside production) a cached self-signed development cert.
type TLSManager struct {
	server     config.ServerConfig
	production bool
	autoCert   *autocert.Manager

	once     sync.Once
	fallback *tls.Certificate
	fallErr  error
}

func NewTLSManager(cfg *config.Config) *TLSManager {
	manager := &TLSManager{
		server:     cfg.Server,
		production: cfg.IsProduction(),
	}

	if cfg.Server.AutoCert && cfg.Server.EnableTLS {
		manager.setupAutoCert()
	}

	return manager
}

func (m *TLSManager) setupAutoCert() {
	if err := os.MkdirAll(m.server.AutoCertDir, 0700); err != nil {
		util.Warn("Could not create autocert directory", util.ErrorField(err))
		return
	}

	m.autoCert = &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(m.server.Domain),
		Cache:      autocert.DirCache(m.server.AutoCertDir),
		Email:      m.server.Email,
	}

	util.Info("AutoCert configured",
		util.String("domain", m.server.Domain),
		util.String("cache_dir", m.server.AutoCertDir))
}

func (m *TLSManager) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if m.autoCert != nil {
		if cert, err := m.autoCert.GetCertificate(hello); err == nil {
			return cert, nil
		}
	}

	m.once.Do(m.loadFallback)
	return m.fallback, m.fallErr
}

// loadFallback runs once; the key pair or generated cert is reused for every handshake.
func (m *TLSManager) loadFallback() {
	if m.server.CertFile != "" && m.server.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(m.server.CertFile, m.server.KeyFile)
		if err == nil {
			m.fallback = &cert
			return
		}
		util.Warn("Failed to load configured certificate", util.ErrorField(err))
	}

	if m.production {
		m.fallErr = fmt.Errorf("%w: self-signed certificates are disabled in production", ErrNoCertificate)
		return
	}

	hosts := []string{"localhost", "127.0.0.1", "::1"}
	if m.server.Domain != "" {
		hosts = append(hosts, m.server.Domain)
	}
	cert, err := NewDevCertGenerator(m.server.AutoCertDir).GenerateCert(hosts)
	if err != nil {
		m.fallErr = fmt.Errorf("failed to generate self-signed certificate: %w", err)
		return
	}
	m.fallback = &cert
}

func (m *TLSManager) GetTLSConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: m.GetCertificate,
		NextProtos:     []string{"h2", "http/1.1"},
		MinVersion:     tls.VersionTLS12,
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
	}
}

func (m *TLSManager) GetAutocertManager() *autocert.Manager {
	return m.autoCert
}
