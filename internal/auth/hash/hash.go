package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Memory is expressed in KiB.
const (
	timeCost   uint32 = 3
	memoryCost uint32 = 64 * 1024
	threads    uint8  = 1
	saltLen           = 16
	keyLen     uint32 = 32
)

// Password derives an Argon2id hash and returns it PHC-formatted:
// $argon2id$v=19$m=65536,t=3,p=1$<saltB64>$<hashB64>
func Password(plain string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	sum := argon2.IDKey([]byte(plain), salt, timeCost, memoryCost, threads, keyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, memoryCost, timeCost, threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify parses the PHC string and checks plain against it in constant time.
// Parameter changes encoded in the PHC (m, t, p) are honoured so old hashes
// keep verifying after a parameter bump.
func Verify(phc, plain string) bool {
	m, t, p, salt, sum, err := parsePHC(phc)
	if err != nil {
		return false
	}
	calc := argon2.IDKey([]byte(plain), salt, t, m, p, uint32(len(sum)))
	return subtle.ConstantTimeCompare(calc, sum) == 1
}

func parsePHC(phc string) (memory, time uint32, p uint8, salt, sum []byte, err error) {
	parts := strings.Split(phc, "$")
	// "", alg, v=19, params, salt, hash
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, errors.New("invalid phc string")
	}
	if v, verr := strconv.Atoi(strings.TrimPrefix(parts[2], "v=")); verr != nil || v != argon2.Version {
		return 0, 0, 0, nil, nil, errors.New("unsupported argon2 version")
	}
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		n, nerr := strconv.ParseUint(v, 10, 32)
		if nerr != nil {
			return 0, 0, 0, nil, nil, nerr
		}
		switch k {
		case "m":
			memory = uint32(n)
		case "t":
			time = uint32(n)
		case "p":
			p = uint8(n)
		}
	}
	if memory == 0 || time == 0 || p == 0 {
		return 0, 0, 0, nil, nil, errors.New("invalid phc params")
	}
	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(salt) == 0 {
		return 0, 0, 0, nil, nil, errors.New("invalid phc salt")
	}
	if sum, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(sum) == 0 {
		return 0, 0, 0, nil, nil, errors.New("invalid phc hash")
	}
	return memory, time, p, salt, sum, nil
}
