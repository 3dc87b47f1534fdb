package repository

import (
	"fmt"
	"strings"

	pkgerrors "github.com/cperrin88/reposync/pkg/errors"
	"github.com/cperrin88/reposync/pkg/jarsign"
	"github.com/cperrin88/reposync/pkg/model"
)

// checkCertificate compares the certificate an index was signed with against the one stored
// for repo. A repository without a stored certificate trusts the first one it sees, unless
// the user pinned a fingerprint that does not match.
func checkCertificate(repo model.Repository, certificate, fingerprint string) error {
	if certificate == "" {
		return ErrNoCertificate
	}
	if repo.Certificate == "" {
		if repo.Fingerprint == "" {
			return nil
		}
		if jarsign.NormalizeFingerprint(repo.Fingerprint) != jarsign.NormalizeFingerprint(fingerprint) {
			return fmt.Errorf("fingerprint %s does not match %s: %w",
				fingerprint, repo.Fingerprint, pkgerrors.ErrCertificateMismatch)
		}
		return nil
	}
	if !strings.EqualFold(repo.Certificate, certificate) {
		return fmt.Errorf("index signed by %s: %w", fingerprint, pkgerrors.ErrCertificateMismatch)
	}
	return nil
}
