// Package hasher turns passwords into deterministic digests.
//
// Digests carry no per-user salt: the same password always yields the same
// digest under the same secret, which lets login run as an (email, digest)
// lookup. Rotating the secret invalidates every stored digest.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/config"
	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/argon2"
)

type Hasher interface {
	Hash(password string) string
}

var argonParams = &argon2id.Params{
	Memory:      64 * 1024, // 64 MiB
	Iterations:  2,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

func New(cfg config.HasherConfig) (Hasher, error) {
	switch cfg.Algorithm {
	case config.HasherSHA256, "":
		return NewSHA256(cfg.Secret), nil
	case config.HasherArgon2ID:
		return NewArgon2ID(cfg.Secret, argonParams), nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", cfg.Algorithm)
	}
}

type sha256Hasher struct {
	secret string
}

func NewSHA256(secret string) Hasher {
	return sha256Hasher{secret: secret}
}

func (h sha256Hasher) Hash(password string) string {
	sum := sha256.Sum256([]byte(password + h.secret))
	return hex.EncodeToString(sum[:])
}

type argon2idHasher struct {
	salt   []byte
	params argon2id.Params
}

// NewArgon2ID derives a fixed salt from secret so the digest stays usable in
// equality filters.
func NewArgon2ID(secret string, p *argon2id.Params) Hasher {
	sum := sha256.Sum256([]byte(secret))
	return argon2idHasher{salt: sum[:p.SaltLength], params: *p}
}

func (h argon2idHasher) Hash(password string) string {
	key := argon2.IDKey([]byte(password), h.salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)
	return hex.EncodeToString(key)
}
