// Package certauthority implements the process-wide local root CA and
// per-hostname leaf certificate minting used for TLS MITM termination
// (spec.md §4.3). Leaf generation follows the ECDSA P-256 +
// x509.CreateCertificate shape grounded in the provider-mirror-proxy
// example (generateTLSConfig); the root CA is RSA-2048, self-signed, and
// persisted as PEM via the shared atomicfile writer.
package certauthority

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/revamp-proxy/revamp/internal/atomicfile"
)

// RootCA is the long-lived (multi-year) local root. It is generated once
// and persisted; subsequent runs load it back from disk.
type RootCA struct {
	Cert    *x509.Certificate
	CertDER []byte
	Key     *rsa.PrivateKey
}

const rootValidity = 10 * 365 * 24 * time.Hour

// LoadOrCreate loads ca.pem/ca.key from dataDir, generating and persisting
// a new root if either is missing.
func LoadOrCreate(dataDir string) (*RootCA, error) {
	certPath := filepath.Join(dataDir, "ca.pem")
	keyPath := filepath.Join(dataDir, "ca.key")

	if ca, err := load(certPath, keyPath); err == nil {
		return ca, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	ca, err := generate()
	if err != nil {
		return nil, fmt.Errorf("generating root CA: %w", err)
	}
	if err := persist(ca, certPath, keyPath); err != nil {
		return nil, fmt.Errorf("persisting root CA: %w", err)
	}
	return ca, nil
}

func generate() (*RootCA, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   "Revamp Local Root CA",
			Organization: []string{"Revamp"},
		},
		NotBefore:             time.Now().Add(-5 * time.Minute),
		NotAfter:               time.Now().Add(rootValidity),
		KeyUsage:               x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid:  true,
		IsCA:                   true,
		MaxPathLenZero:         true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}

	return &RootCA{Cert: cert, CertDER: der, Key: key}, nil
}

func persist(ca *RootCA, certPath, keyPath string) error {
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: ca.CertDER})
	if err := atomicfile.WriteBytes(certPath, certPEM); err != nil {
		return err
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(ca.Key)})
	return atomicfile.WriteBytes(keyPath, keyPEM)
}

func load(certPath, keyPath string) (*RootCA, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, err
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil {
		return nil, fmt.Errorf("certauthority: invalid ca.pem")
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("certauthority: parsing ca.pem: %w", err)
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, fmt.Errorf("certauthority: invalid ca.key")
	}
	key, err := x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("certauthority: parsing ca.key: %w", err)
	}

	return &RootCA{Cert: cert, CertDER: certBlock.Bytes, Key: key}, nil
}
