package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidHash         = errors.New("invalid hash format")
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

// argonParams are the cost settings recorded in every encoded hash.
type argonParams struct {
	memory  uint32 // KiB
	time    uint32
	threads uint8
	keyLen  uint32
}

// defaultParams: 64 MiB, one pass, four lanes.
var defaultParams = argonParams{memory: 64 * 1024, time: 1, threads: 4, keyLen: 32}

const (
	saltLen = 16
	// stored hashes asking for more memory than this are refused
	maxMemory = 1024 * 1024
)

var b64 = base64.RawStdEncoding

// HashPassword returns password hashed with Argon2id in PHC string form:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	p := defaultParams
	key := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
	return p.encode(salt, key), nil
}

// VerifyPassword reports whether password matches encodedHash, using the
// cost settings stored in the hash. A malformed hash is an error; a wrong
// password is (false, nil).
func VerifyPassword(encodedHash, password string) (bool, error) {
	p, salt, key, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}
	candidate := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

func (p argonParams) encode(salt, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads,
		b64.EncodeToString(salt), b64.EncodeToString(key))
}

func decodeHash(encoded string) (argonParams, []byte, []byte, error) {
	var p argonParams

	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return p, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("%w: version: %v", ErrInvalidHash, err)
	}
	if version != argon2.Version {
		return p, nil, nil, ErrIncompatibleVersion
	}

	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return p, nil, nil, fmt.Errorf("%w: params: %v", ErrInvalidHash, err)
	}
	if p.memory == 0 || p.memory > maxMemory || p.time == 0 || p.threads == 0 {
		return p, nil, nil, fmt.Errorf("%w: params out of range", ErrInvalidHash)
	}

	salt, err := b64.DecodeString(fields[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	key, err := b64.DecodeString(fields[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: key: %v", ErrInvalidHash, err)
	}
	if len(key) == 0 {
		return p, nil, nil, fmt.Errorf("%w: empty key", ErrInvalidHash)
	}
	p.keyLen = uint32(len(key))

	return p, salt, key, nil
}
