// TLS certificate provisioning for the RTMPS listener.

package main

import (
	"crypto/tls"

	certloader "github.com/AgustinSRG/go-tls-certificate-loader"
)

// CertProvider wraps the hot-reloadable certificate loader and exposes the
// tls.Config.GetCertificate hook the RTMPS listener needs.
type CertProvider struct {
	loader *certloader.CertificateLoader
}

// NewCertProvider loads certPath/keyPath and starts the loader's background
// reload checker, which re-reads the files every checkReloadSeconds.
func NewCertProvider(certPath string, keyPath string, checkReloadSeconds int) (*CertProvider, error) {
	loader, err := certloader.NewCertificateLoader(certPath, keyPath, checkReloadSeconds)
	if err != nil {
		return nil, err
	}

	return &CertProvider{loader: loader}, nil
}

func (p *CertProvider) GetCertificateFunc() func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return p.loader.GetCertificateFunc()
}
