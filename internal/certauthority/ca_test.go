package certauthority

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrCreatePersistsAndReloads(t *testing.T) {
	dir := t.TempDir()

	ca, err := LoadOrCreate(dir)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if !ca.Cert.IsCA {
		t.Fatal("expected root certificate to be a CA")
	}

	reloaded, err := LoadOrCreate(dir)
	if err != nil {
		t.Fatalf("LoadOrCreate reload: %v", err)
	}
	if reloaded.Cert.SerialNumber.Cmp(ca.Cert.SerialNumber) != 0 {
		t.Fatal("expected reload to return the same root, not generate a new one")
	}
}

func TestLoadOrCreateWritesPEMFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadOrCreate(dir); err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	for _, f := range []string{"ca.pem", "ca.key"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Fatalf("expected %s to exist: %v", f, err)
		}
	}
}

func TestFactoryMintsValidLeaf(t *testing.T) {
	dir := t.TempDir()
	root, err := LoadOrCreate(dir)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	factory, err := NewFactory(root)
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}

	leaf, err := factory.Get("mail.example.com")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	cert, err := x509.ParseCertificate(leaf.TLSCert.Certificate[0])
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}

	found := false
	for _, name := range cert.DNSNames {
		if name == "mail.example.com" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected SAN to include requested hostname, got %v", cert.DNSNames)
	}

	pool := x509.NewCertPool()
	pool.AddCert(root.Cert)
	if _, err := cert.Verify(x509.VerifyOptions{Roots: pool, KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}}); err != nil {
		t.Fatalf("expected leaf to chain to local root: %v", err)
	}
}

func TestFactoryCachesByHostname(t *testing.T) {
	dir := t.TempDir()
	root, _ := LoadOrCreate(dir)
	factory, _ := NewFactory(root)

	a, err := factory.Get("example.com")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	b, err := factory.Get("example.com")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a != b {
		t.Fatal("expected cached leaf to be returned on second Get")
	}
}

func TestSanNamesAddsWildcardForThreeLabels(t *testing.T) {
	names := sanNames("mail.example.com")
	if len(names) != 2 || names[1] != "*.example.com" {
		t.Fatalf("unexpected SAN set: %v", names)
	}
}

func TestSanNamesNoWildcardForTwoLabels(t *testing.T) {
	names := sanNames("example.com")
	if len(names) != 1 {
		t.Fatalf("expected no wildcard for 2-label hostname, got %v", names)
	}
}
