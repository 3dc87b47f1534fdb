// Package jarsigntest builds signed JAR files for tests of code that consumes signed
// repository indexes.
package jarsigntest

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mholt/archives"
	"github.com/smallstep/pkcs7"
	"github.com/stretchr/testify/require"
)

// Signer is a self-signed code signing identity.
type Signer struct {
	cert *x509.Certificate
	key  *rsa.PrivateKey
}

// NewSigner generates a fresh RSA key and certificate.
func NewSigner(t testing.TB, name string) *Signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: name},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return &Signer{cert: cert, key: key}
}

// Certificate returns the hex encoded DER certificate.
func (s *Signer) Certificate() string {
	return hex.EncodeToString(s.cert.Raw)
}

// Fingerprint returns the hex encoded SHA-256 of the certificate.
func (s *Signer) Fingerprint() string {
	sum := sha256.Sum256(s.cert.Raw)
	return hex.EncodeToString(sum[:])
}

// JAR returns a JAR holding name with content, signed by s with SHA-256 digests.
func (s *Signer) JAR(t testing.TB, name string, content []byte) []byte {
	t.Helper()

	entrySum := sha256.Sum256(content)
	manifest := []byte(fmt.Sprintf("Manifest-Version: 1.0\r\n\r\nName: %s\r\nSHA-256-Digest: %s\r\n\r\n",
		name, base64.StdEncoding.EncodeToString(entrySum[:])))
	mfSum := sha256.Sum256(manifest)
	sf := []byte("Signature-Version: 1.0\r\nSHA-256-Digest-Manifest: " +
		base64.StdEncoding.EncodeToString(mfSum[:]) + "\r\n\r\n")

	sd, err := pkcs7.NewSignedData(sf)
	require.NoError(t, err)
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
	require.NoError(t, sd.AddSigner(s.cert, s.key, pkcs7.SignerInfoConfig{}))
	sd.Detach()
	block, err := sd.Finish()
	require.NoError(t, err)

	src := t.TempDir()
	for file, data := range map[string][]byte{
		name:                   content,
		"META-INF/MANIFEST.MF": manifest,
		"META-INF/CERT.SF":     sf,
		"META-INF/CERT.RSA":    block,
	} {
		p := filepath.Join(src, filepath.FromSlash(file))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, data, 0o644))
	}

	ctx := context.Background()
	files, err := archives.FilesFromDisk(ctx, nil, map[string]string{src + string(os.PathSeparator): ""})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, archives.Zip{}.Archive(ctx, &buf, files))
	return buf.Bytes()
}
