// Package jarsign verifies JAR-signed repository files. A JAR must carry exactly one signer
// with exactly one certificate; the certificate is returned so that callers can pin it.
package jarsign

import (
	"bytes"
	"context"
	"crypto/md5"  //nolint:gosec // only used to reject md5 digests
	"crypto/sha1" //nolint:gosec // legacy v1 indexes are signed with SHA1 digests
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"hash"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/mholt/archives"
	"github.com/smallstep/pkcs7"

	pkgerrors "github.com/cperrin88/reposync/pkg/errors"
)

const (
	metaInf      = "META-INF"
	manifestPath = metaInf + "/MANIFEST.MF"

	// minCertificateLength rejects certificates too short to be real signing certificates.
	minCertificateLength = 256
)

// DigestPolicy selects the digest algorithms a JAR may use.
type DigestPolicy int

const (
	// PolicyEntry accepts SHA-256, SHA-384 and SHA-512 only.
	PolicyEntry DigestPolicy = iota
	// PolicyLegacy additionally accepts SHA1 as used by v1 indexes.
	PolicyLegacy
)

var digests = map[string]func() hash.Hash{
	"SHA-256": sha256.New,
	"SHA-384": sha512.New384,
	"SHA-512": sha512.New,
	"SHA1":    sha1.New,
	"SHA-1":   sha1.New,
	"MD5":     md5.New,
}

func (p DigestPolicy) allows(alg string) bool {
	switch alg {
	case "SHA-256", "SHA-384", "SHA-512":
		return true
	case "SHA1", "SHA-1":
		return p == PolicyLegacy
	default:
		return false
	}
}

// digestsOf returns the hashes an attribute section declares with the given suffix, e.g.
// "-Digest" or "-Digest-Manifest". A declared digest the policy forbids is an error.
func (p DigestPolicy) digestsOf(attrs attributes, suffix string) ([]expectedDigest, error) {
	var out []expectedDigest
	for key, value := range attrs {
		alg, ok := strings.CutSuffix(key, suffix)
		if !ok || strings.Contains(alg, "-Digest") {
			continue
		}
		alg = strings.ToUpper(alg)
		newHash, known := digests[alg]
		if !known {
			continue
		}
		if !p.allows(alg) {
			return nil, pkgerrors.Wrapf(pkgerrors.ErrSigning, "digest algorithm %s not allowed", alg)
		}
		want, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, pkgerrors.Wrapf(pkgerrors.ErrSigning, "bad %s: %v", key, err)
		}
		out = append(out, expectedDigest{alg: alg, hash: newHash(), want: want})
	}
	if len(out) == 0 {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrSigning, "no usable *%s attribute", suffix)
	}
	return out, nil
}

type expectedDigest struct {
	alg  string
	hash hash.Hash
	want []byte
}

func (d expectedDigest) matches() bool {
	return bytes.Equal(d.hash.Sum(nil), d.want)
}

// Entry is a signed file inside a JAR. Reading it hashes the content; Verify must be called
// once the caller is done to check the content against the manifest.
type Entry struct {
	r       io.Reader
	closers []io.Closer
	digests []expectedDigest

	// Certificate is the hex-encoded DER certificate of the signer.
	Certificate string
	// Fingerprint is the hex-encoded SHA-256 of the certificate.
	Fingerprint string
}

func (e *Entry) Read(p []byte) (int, error) { return e.r.Read(p) }

// Verify consumes the rest of the entry and compares its digests with the manifest.
func (e *Entry) Verify() error {
	if _, err := io.Copy(io.Discard, e.r); err != nil {
		return err
	}
	for _, d := range e.digests {
		if !d.matches() {
			return pkgerrors.Wrapf(pkgerrors.ErrSigning, "%s digest mismatch", d.alg)
		}
	}
	return nil
}

// Close releases the JAR.
func (e *Entry) Close() error {
	var first error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open verifies the signature of the JAR at jarPath and opens the signed file name. The
// content is verified as it is read; callers must call Verify before trusting it.
func Open(ctx context.Context, jarPath, name string, policy DigestPolicy) (*Entry, error) {
	fsys, err := archives.FileSystem(ctx, jarPath, nil)
	if err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrSigning, "open jar: %v", err)
	}
	e := &Entry{}
	if closer, ok := fsys.(io.Closer); ok {
		e.closers = append(e.closers, closer)
	}
	if err := e.open(fsys, name, policy); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Entry) open(fsys fs.FS, name string, policy DigestPolicy) error {
	sfName, blockName, err := signatureFiles(fsys)
	if err != nil {
		return err
	}
	sf, err := fs.ReadFile(fsys, sfName)
	if err != nil {
		return pkgerrors.Wrapf(pkgerrors.ErrSigning, "read %s: %v", sfName, err)
	}
	block, err := fs.ReadFile(fsys, blockName)
	if err != nil {
		return pkgerrors.Wrapf(pkgerrors.ErrSigning, "read %s: %v", blockName, err)
	}
	if e.Certificate, e.Fingerprint, err = verifyBlock(block, sf); err != nil {
		return err
	}

	mf, err := fs.ReadFile(fsys, manifestPath)
	if err != nil {
		return pkgerrors.Wrapf(pkgerrors.ErrSigning, "read manifest: %v", err)
	}
	if err := verifySignatureFile(sf, mf, policy); err != nil {
		return err
	}
	m, err := parseManifest(mf)
	if err != nil {
		return err
	}
	attrs, ok := m.entries[name]
	if !ok {
		return pkgerrors.Wrapf(pkgerrors.ErrSigning, "%s is not signed", name)
	}
	if e.digests, err = policy.digestsOf(attrs, "-Digest"); err != nil {
		return err
	}

	f, err := fsys.Open(name)
	if err != nil {
		return pkgerrors.Wrapf(pkgerrors.ErrSigning, "open %s: %v", name, err)
	}
	e.closers = append(e.closers, f)
	writers := make([]io.Writer, 0, len(e.digests))
	for _, d := range e.digests {
		writers = append(writers, d.hash)
	}
	e.r = io.TeeReader(f, io.MultiWriter(writers...))
	return nil
}

// signatureFiles finds the single .SF file and its matching signature block.
func signatureFiles(fsys fs.FS) (sf, block string, err error) {
	entries, err := fs.ReadDir(fsys, metaInf)
	if err != nil {
		return "", "", pkgerrors.Wrapf(pkgerrors.ErrSigning, "read %s: %v", metaInf, err)
	}
	var sfs, blocks []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToUpper(path.Ext(entry.Name())) {
		case ".SF":
			sfs = append(sfs, path.Join(metaInf, entry.Name()))
		case ".RSA", ".DSA", ".EC":
			blocks = append(blocks, path.Join(metaInf, entry.Name()))
		}
	}
	if len(sfs) != 1 || len(blocks) != 1 {
		return "", "", pkgerrors.Wrapf(pkgerrors.ErrSigning,
			"expected one signer, found %d signature files and %d signature blocks", len(sfs), len(blocks))
	}
	if strings.TrimSuffix(sfs[0], path.Ext(sfs[0])) != strings.TrimSuffix(blocks[0], path.Ext(blocks[0])) {
		return "", "", pkgerrors.Wrapf(pkgerrors.ErrSigning, "%s does not belong to %s", blocks[0], sfs[0])
	}
	return sfs[0], blocks[0], nil
}

// verifyBlock checks the detached PKCS#7 signature over the signature file.
func verifyBlock(block, sf []byte) (certificate, fingerprint string, err error) {
	p7, err := pkcs7.Parse(block)
	if err != nil {
		return "", "", pkgerrors.Wrapf(pkgerrors.ErrSigning, "parse signature block: %v", err)
	}
	if len(p7.Certificates) != 1 {
		return "", "", pkgerrors.Wrapf(pkgerrors.ErrSigning, "expected one certificate, found %d", len(p7.Certificates))
	}
	cert := p7.Certificates[0]
	if len(cert.Raw) < minCertificateLength {
		return "", "", pkgerrors.Wrapf(pkgerrors.ErrSigning, "certificate too short (%d bytes)", len(cert.Raw))
	}
	p7.Content = sf
	if err := p7.Verify(); err != nil {
		return "", "", pkgerrors.Wrapf(pkgerrors.ErrSigning, "signature: %v", err)
	}
	sum := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(cert.Raw), hex.EncodeToString(sum[:]), nil
}

// verifySignatureFile checks the manifest digest recorded in the signature file.
func verifySignatureFile(sf, mf []byte, policy DigestPolicy) error {
	parsed, err := parseManifest(sf)
	if err != nil {
		return err
	}
	ds, err := policy.digestsOf(parsed.main, "-Digest-Manifest")
	if err != nil {
		return err
	}
	for _, d := range ds {
		d.hash.Write(mf)
		if !d.matches() {
			return pkgerrors.Wrapf(pkgerrors.ErrSigning, "manifest %s digest mismatch", d.alg)
		}
	}
	return nil
}

// Fingerprint returns the SHA-256 fingerprint of a hex-encoded certificate.
func Fingerprint(certificate string) (string, error) {
	raw, err := hex.DecodeString(certificate)
	if err != nil || len(raw) == 0 {
		return "", pkgerrors.Wrap(pkgerrors.ErrSigning, "invalid certificate encoding")
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// NormalizeFingerprint lower-cases a fingerprint and strips separators users tend to paste.
func NormalizeFingerprint(fp string) string {
	return strings.ToLower(strings.NewReplacer(":", "", " ", "", "-", "").Replace(fp))
}
