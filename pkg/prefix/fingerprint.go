package prefix

import (
	"context"
	"errors"

	"github.com/go-logr/logr"
	"github.com/gosimple/hashdir"
)

// Fingerprint hashes the realized prefix tree. Two
// prefixes with the same installed artifact set produce
// the same fingerprint, which is how repeated builds are
// shown to be idempotent.
func (p *Prefix) Fingerprint(ctx context.Context) (string, error) {
	log := logr.FromContextOrDiscard(ctx)
	if p.dir == "" {
		return "", errors.New("cannot fingerprint an in-memory prefix")
	}

	digest, err := hashdir.Make(p.dir, "sha256")
	if err != nil {
		log.Error(err, "failed to generate directory digest", "alg", "sha256", "path", p.dir)
		return "", err
	}
	return "sha256:" + digest, nil
}
