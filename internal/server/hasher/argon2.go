// Package hasher implements the one-way salted hashing used for passwords and
// for refresh tokens at rest.
//
// Hashes are argon2id, encoded in the PHC string format:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt b64>$<hash b64>
//
// Every record carries its own random salt. The process-wide secret configured
// as SALT is applied as a pepper: it is mixed into the argon2 input and never
// stored next to the hash.
package hasher

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/advn1/rback/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	algorithmID   = "argon2id"
	MinSaltLength = 16
	minKeyLength  = 16
	minMemoryKB   = 1024
)

// Params are the argon2id cost parameters used for new hashes. Verify always
// uses the parameters recorded in the hash itself.
type Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams matches the cost the server has always used for key derivation.
var DefaultParams = Params{
	Memory:      64 * 1024,
	Time:        1,
	Parallelism: 4,
	SaltLength:  MinSaltLength,
	KeyLength:   32,
}

// Argon2 hashes and verifies secrets. Safe for concurrent use.
type Argon2 struct {
	params Params
	pepper []byte
}

// New returns an Argon2 hasher. pepper may be empty.
func New(params Params, pepper []byte) (*Argon2, error) {
	if params.Memory < minMemoryKB {
		return nil, fmt.Errorf("%w: memory must be >= %d KB", common.ErrHashing, minMemoryKB)
	}
	if params.Time < 1 || params.Parallelism < 1 {
		return nil, fmt.Errorf("%w: time and parallelism must be >= 1", common.ErrHashing)
	}
	if params.SaltLength < MinSaltLength {
		return nil, fmt.Errorf("%w: salt length must be >= %d", common.ErrHashing, MinSaltLength)
	}
	if params.KeyLength < minKeyLength {
		return nil, fmt.Errorf("%w: key length must be >= %d", common.ErrHashing, minKeyLength)
	}
	p := make([]byte, len(pepper))
	copy(p, pepper)
	return &Argon2{params: params, pepper: p}, nil
}

// Hash hashes secret under a freshly generated salt.
func (a *Argon2) Hash(secret string) (string, error) {
	salt := common.GenerateRandByteArray(int(a.params.SaltLength))
	if salt == nil {
		return "", fmt.Errorf("%w: cannot read random salt", common.ErrHashing)
	}
	return a.HashWithSalt(secret, salt)
}

// HashWithSalt deterministically hashes secret under salt.
func (a *Argon2) HashWithSalt(secret string, salt []byte) (string, error) {
	if !utf8.ValidString(secret) {
		return "", fmt.Errorf("%w: secret is not valid UTF-8", common.ErrHashing)
	}
	if len(salt) < MinSaltLength {
		return "", fmt.Errorf("%w: salt shorter than %d bytes", common.ErrHashing, MinSaltLength)
	}

	key := a.derive(secret, salt, a.params.Time, a.params.Memory, a.params.Parallelism, a.params.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		a.params.Memory,
		a.params.Time,
		a.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether candidate hashes to hashed. A mismatch is (false, nil);
// an error is returned only when hashed is not a well-formed argon2id PHC string.
func (a *Argon2) Verify(hashed, candidate string) (bool, error) {
	p, err := parsePHC(hashed)
	if err != nil {
		return false, err
	}

	key := a.derive(candidate, p.salt, p.time, p.memory, p.parallelism, uint32(len(p.hash)))

	return subtle.ConstantTimeCompare(key, p.hash) == 1, nil
}

func (a *Argon2) derive(secret string, salt []byte, time, memory uint32, threads uint8, keyLen uint32) []byte {
	input := make([]byte, 0, len(a.pepper)+len(secret))
	input = append(input, a.pepper...)
	input = append(input, secret...)
	defer common.WipeByteArray(input)

	return argon2.IDKey(input, salt, time, memory, threads, keyLen)
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", common.ErrHashing, reason)
}

func parsePHC(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, malformed("invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, malformed("unsupported algorithm")
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, malformed("unsupported argon2 version")
	}

	out := &phc{}
	var seen int
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, malformed("invalid parameter entry")
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < minMemoryKB {
				return nil, malformed("invalid memory parameter")
			}
			out.memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < 1 {
				return nil, malformed("invalid time parameter")
			}
			out.time = uint32(n)
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || n < 1 {
				return nil, malformed("invalid parallelism parameter")
			}
			out.parallelism = uint8(n)
		default:
			return nil, malformed("unsupported parameter")
		}
		seen++
	}
	if seen != 3 || out.memory == 0 || out.time == 0 || out.parallelism == 0 {
		return nil, malformed("missing parameters")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < MinSaltLength {
		return nil, malformed("invalid salt")
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) < minKeyLength {
		return nil, malformed("invalid hash")
	}
	out.salt = salt
	out.hash = hash

	return out, nil
}
