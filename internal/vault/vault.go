// Package vault implements the credential vault: it turns a master
// passphrase into an encryption key and seals or opens the record set.
//
// The package only produces and consumes byte buffers. Persisting an
// Envelope is the job of configstore, which keeps vault logic testable with
// in-memory data.
//
// Every failure to open an envelope (wrong passphrase, truncated or tampered
// file, unknown format) is reported as common.ErrAuth. The vault never tells
// a caller which of those happened.
package vault

import (
	"bytes"
	"crypto/subtle"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
	"github.com/dmitrijs2005/dbkeeper/internal/cryptox"
	"github.com/dmitrijs2005/dbkeeper/internal/models"
)

const (
	// FormatVersion is written into every envelope.
	FormatVersion = 1
	// SaltSize is the length of the random argon2 salt.
	SaltSize = 32
	// Upper bounds on the cost parameters an envelope may ask argon2 for.
	// They are checked before any derivation so an edited file cannot stall
	// or exhaust the process.
	maxTime      = 16
	maxMemoryKiB = 1024 * 1024
	maxThreads   = 64
)

// Envelope is the persisted vault artifact.
type Envelope struct {
	Version    int               `json:"version"`
	Salt       []byte            `json:"salt"`
	KDF        cryptox.KDFParams `json:"kdf"`
	Nonce      []byte            `json:"nonce"`
	Ciphertext []byte            `json:"ciphertext"`
	Verifier   []byte            `json:"verifier"`
}

// Key is a derived vault key together with the salt and parameters it was
// derived with. Seal reuses them so the envelope stays openable.
type Key struct {
	material []byte
	salt     []byte
	params   cryptox.KDFParams
}

// DeriveKey stretches passphrase with salt under params.
func DeriveKey(passphrase, salt []byte, params cryptox.KDFParams) (*Key, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", cryptox.ErrInvalidParams)
	}
	return &Key{
		material: cryptox.DeriveMasterKey(passphrase, salt, params),
		salt:     append([]byte(nil), salt...),
		params:   params,
	}, nil
}

// NewKey derives a key for passphrase under a freshly generated salt.
// Parameters Unlock would refuse are rejected up front.
func NewKey(passphrase []byte, params cryptox.KDFParams) (*Key, error) {
	if !withinLimits(params) {
		return nil, fmt.Errorf("%w: cost above vault limits", cryptox.ErrInvalidParams)
	}
	salt, err := common.GenerateRandByteArray(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return DeriveKey(passphrase, salt, params)
}

// Params returns the KDF parameters the key was derived with.
func (k *Key) Params() cryptox.KDFParams {
	return k.params
}

// Wipe zeroes the key material. The key must not be used afterwards.
func (k *Key) Wipe() {
	if k == nil {
		return
	}
	common.WipeByteArray(k.material)
	k.material = nil
}

// Initialize creates a new vault holding an empty record set. It fails only
// if the system randomness source fails.
func Initialize(passphrase []byte, params cryptox.KDFParams) (Envelope, *Key, error) {
	key, err := NewKey(passphrase, params)
	if err != nil {
		return Envelope{}, nil, err
	}
	env, err := Seal(models.RecordSet{Records: []models.DatabaseRecord{}}, key)
	if err != nil {
		key.Wipe()
		return Envelope{}, nil, err
	}
	return env, key, nil
}

// Seal encrypts set under key. A fresh nonce is generated on every call, so
// sealing the same set twice never yields the same ciphertext.
func Seal(set models.RecordSet, key *Key) (Envelope, error) {
	if key == nil || key.material == nil {
		return Envelope{}, common.ErrVaultLocked
	}
	if err := checkUniqueIDs(set); err != nil {
		return Envelope{}, err
	}
	if set.Records == nil {
		set.Records = []models.DatabaseRecord{}
	}

	plaintext, err := json.Marshal(set)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode records: %w", err)
	}
	defer common.WipeByteArray(plaintext)

	env := Envelope{
		Version:  FormatVersion,
		Salt:     append([]byte(nil), key.salt...),
		KDF:      key.params,
		Verifier: cryptox.MakeVerifier(key.material),
	}

	env.Ciphertext, env.Nonce, err = cryptox.Seal(key.material, plaintext, header(env))
	if err != nil {
		return Envelope{}, fmt.Errorf("seal records: %w", err)
	}
	return env, nil
}

func withinLimits(p cryptox.KDFParams) bool {
	return p.Time <= maxTime && p.MemoryKiB <= maxMemoryKiB && p.Threads <= maxThreads
}

// Unlock re-derives the key from passphrase and the envelope's salt and
// parameters, then opens the record set. Any failure yields common.ErrAuth.
func Unlock(passphrase []byte, env Envelope) (models.RecordSet, *Key, error) {
	if env.Version != FormatVersion || len(env.Salt) == 0 || !withinLimits(env.KDF) {
		return models.RecordSet{}, nil, common.ErrAuth
	}

	key, err := DeriveKey(passphrase, env.Salt, env.KDF)
	if err != nil {
		return models.RecordSet{}, nil, common.ErrAuth
	}

	if subtle.ConstantTimeCompare(cryptox.MakeVerifier(key.material), env.Verifier) != 1 {
		key.Wipe()
		return models.RecordSet{}, nil, common.ErrAuth
	}

	plaintext, err := cryptox.Open(key.material, env.Ciphertext, env.Nonce, header(env))
	if err != nil {
		key.Wipe()
		return models.RecordSet{}, nil, common.ErrAuth
	}
	defer common.WipeByteArray(plaintext)

	var set models.RecordSet
	if err := json.Unmarshal(plaintext, &set); err != nil {
		key.Wipe()
		return models.RecordSet{}, nil, common.ErrAuth
	}
	if set.Records == nil {
		set.Records = []models.DatabaseRecord{}
	}
	return set, key, nil
}

// Encode serializes env for storage.
func Encode(env Envelope) ([]byte, error) {
	return json.MarshalIndent(env, "", "  ")
}

// Decode parses a stored envelope. Malformed input is an authentication
// failure like any other unreadable vault.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return Envelope{}, common.ErrAuth
	}
	return env, nil
}

// header binds the format version, salt and KDF parameters to the
// ciphertext as AEAD additional data.
func header(env Envelope) []byte {
	var buf bytes.Buffer
	buf.WriteString("dbkeeper-vault")
	_ = binary.Write(&buf, binary.BigEndian, uint32(env.Version))
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(env.Salt)))
	buf.Write(env.Salt)
	_ = binary.Write(&buf, binary.BigEndian, env.KDF.Time)
	_ = binary.Write(&buf, binary.BigEndian, env.KDF.MemoryKiB)
	_ = binary.Write(&buf, binary.BigEndian, env.KDF.Threads)
	_ = binary.Write(&buf, binary.BigEndian, env.KDF.KeyLen)
	return buf.Bytes()
}

func checkUniqueIDs(set models.RecordSet) error {
	seen := make(map[string]struct{}, len(set.Records))
	for _, r := range set.Records {
		if r.ID == "" {
			return fmt.Errorf("%w: record without id", common.ErrValidation)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: duplicate record id %s", common.ErrValidation, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}
