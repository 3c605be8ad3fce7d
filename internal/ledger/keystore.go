package ledger

import (
    "context"
    "crypto/aes"
    "crypto/cipher"
    "crypto/rand"
    "encoding/binary"
    "encoding/hex"
    "encoding/json"
    "errors"
    "hash/crc32"
    "io"
    "os"
    "path/filepath"
    "sync"
    "time"

    "github.com/fedmask/chaincoord/pkg/logger"
    "github.com/fedmask/chaincoord/pkg/metrics"
)

// SigningKey is the ledger signing identity held at rest: the node address
// and the opaque private key material handed to the connection.
type SigningKey struct {
    Address string `json:"address"`
    Key     []byte `json:"key"`
}

// KeyStore persists the SigningKey locally with atomic writes
// (tmp+fsync+rename) and a .bak fallback. Optional AES-256-GCM encryption
// (off by default) with best-effort zeroization of plaintext buffers.
type KeyStore struct {
    mu      sync.Mutex
    path    string // e.g. ledger_key.dat
    aead    cipher.AEAD
    encrypt bool
    zeroize bool
}

// NewKeyStore builds a KeyStore at path (unencrypted).
func NewKeyStore(path string) *KeyStore { return &KeyStore{path: path} }

// NewKeyStoreEncrypted builds an encrypting KeyStore from a 32-byte key;
// falls back to unencrypted when the key length is wrong. zeroize clears
// plaintext buffers after use.
func NewKeyStoreEncrypted(path string, key []byte, zeroize bool) *KeyStore {
    ks := &KeyStore{path: path}
    if len(key) != 32 {
        return ks
    }
    if a, err := newAESGCM(key); err == nil {
        ks.aead = a
        ks.encrypt = true
        ks.zeroize = zeroize
    }
    zero(key)
    return ks
}

// NewKeyStoreFromEnv builds the KeyStore from environment configuration.
// CHAINCOORD_KEYSTORE_ENCRYPT=1 enables encryption; the key comes from
// CHAINCOORD_KEYSTORE_KEY (64 hex chars) or CHAINCOORD_KEYSTORE_KEY_FILE
// (raw 32 bytes); CHAINCOORD_ZEROIZE=1 enables plaintext zeroization.
func NewKeyStoreFromEnv(path string) *KeyStore {
    if os.Getenv("CHAINCOORD_KEYSTORE_ENCRYPT") == "1" {
        var key []byte
        if hexStr := os.Getenv("CHAINCOORD_KEYSTORE_KEY"); hexStr != "" {
            if b, err := hex.DecodeString(hexStr); err == nil {
                key = b
            }
        } else if f := os.Getenv("CHAINCOORD_KEYSTORE_KEY_FILE"); f != "" {
            if b, err := os.ReadFile(f); err == nil {
                key = b
            }
        }
        zeroize := os.Getenv("CHAINCOORD_ZEROIZE") == "1"
        return NewKeyStoreEncrypted(path, key, zeroize)
    }
    return NewKeyStore(path)
}

var ErrKeyNotFound = errors.New("signing key not found")

const (
    magicKey    uint32 = 0x434b4559 // 'CKEY'
    keyVersion  uint16 = 1
    flagEncrypt uint16 = 1 << 0
)

// On-disk layout:
// [magic u32][version u16][flags u16][length u32][crc32 u32][payload ...]
// payload = JSON SigningKey, or nonce(12B)||ciphertext when encrypted.

func (s *KeyStore) writeAtomic(path string, sk SigningKey) error {
    dir := filepath.Dir(path)
    tmp := path + ".tmp"

    f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
    if err != nil { return err }
    payload, err := json.Marshal(sk)
    if err != nil { _ = f.Close(); return err }

    flags := uint16(0)
    body := payload
    if s.encrypt && s.aead != nil {
        nonce := make([]byte, 12)
        if _, err := rand.Read(nonce); err != nil { _ = f.Close(); zero(payload); return err }
        sealed := s.aead.Seal(nil, nonce, payload, nil)
        body = make([]byte, 0, len(nonce)+len(sealed))
        body = append(body, nonce...)
        body = append(body, sealed...)
        flags |= flagEncrypt
        if s.zeroize { zero(payload) }
    }

    length := uint32(len(body))
    sum := crc32.ChecksumIEEE(body)
    hdr := make([]byte, 16)
    binary.BigEndian.PutUint32(hdr[0:], magicKey)
    binary.BigEndian.PutUint16(hdr[4:], keyVersion)
    binary.BigEndian.PutUint16(hdr[6:], flags)
    binary.BigEndian.PutUint32(hdr[8:], length)
    binary.BigEndian.PutUint32(hdr[12:], sum)
    if _, err = f.Write(hdr); err != nil { _ = f.Close(); return err }
    if _, err = f.Write(body); err != nil { _ = f.Close(); return err }
    if err = f.Sync(); err != nil { _ = f.Close(); return err }
    if err = f.Close(); err != nil { return err }

    // keep previous file as .bak before renaming over it
    if _, err := os.Stat(path); err == nil {
        _ = os.Rename(path, path+".bak")
    }
    if err = os.Rename(tmp, path); err != nil { return err }
    if d, err := os.Open(dir); err == nil {
        _ = d.Sync()
        _ = d.Close()
    }
    if s.zeroize && (s.encrypt && s.aead != nil) { zero(body) }
    return nil
}

func (s *KeyStore) readFile(path string) (SigningKey, error) {
    f, err := os.Open(path)
    if err != nil { return SigningKey{}, err }
    defer f.Close()

    hdr := make([]byte, 16)
    if _, err = io.ReadFull(f, hdr); err != nil { return SigningKey{}, err }
    if binary.BigEndian.Uint32(hdr[0:]) != magicKey { return SigningKey{}, errors.New("bad magic") }
    if binary.BigEndian.Uint16(hdr[4:]) != keyVersion { return SigningKey{}, errors.New("bad version") }
    flags := binary.BigEndian.Uint16(hdr[6:])
    length := binary.BigEndian.Uint32(hdr[8:])
    want := binary.BigEndian.Uint32(hdr[12:])
    if length == 0 { return SigningKey{}, errors.New("bad length") }
    body := make([]byte, int(length))
    if _, err = io.ReadFull(f, body); err != nil { return SigningKey{}, err }
    if got := crc32.ChecksumIEEE(body); got != want { return SigningKey{}, errors.New("crc mismatch") }

    var plain []byte
    if (flags & flagEncrypt) != 0 {
        if s.aead == nil { return SigningKey{}, errors.New("encrypted but no key") }
        if len(body) < 12 { return SigningKey{}, errors.New("bad nonce") }
        nonce, ct := body[:12], body[12:]
        p, err := s.aead.Open(nil, nonce, ct, nil)
        if err != nil { return SigningKey{}, err }
        plain = p
    } else {
        plain = body
    }

    var sk SigningKey
    err = json.Unmarshal(plain, &sk)
    if s.zeroize && len(plain) > 0 { zero(plain) }
    if err != nil { return SigningKey{}, err }
    return sk, nil
}

// Save persists the signing key.
func (s *KeyStore) Save(_ context.Context, sk SigningKey) error {
    begin := time.Now()
    s.mu.Lock(); defer s.mu.Unlock()
    if err := s.writeAtomic(s.path, sk); err != nil {
        metrics.Inc("keystore_persist_errors_total", nil)
        logger.ErrorJ("keystore", map[string]any{"op": "persist", "result": "error", "err": err.Error()})
        return err
    }
    ms := float64(time.Since(begin).Milliseconds())
    metrics.ObserveSummary("keystore_persist_ms", nil, ms)
    logger.InfoJ("keystore", map[string]any{"op": "persist", "result": "ok", "latency_ms": ms})
    return nil
}

// Load reads the signing key, falling back to .bak when the main file is
// missing or corrupt.
func (s *KeyStore) Load(_ context.Context) (SigningKey, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    if sk, err := s.readFile(s.path); err == nil {
        metrics.Inc("keystore_recovery_total", map[string]string{"result": "ok"})
        return sk, nil
    }
    if sk, err := s.readFile(s.path + ".bak"); err == nil {
        metrics.Inc("keystore_recovery_total", map[string]string{"result": "fallback"})
        logger.InfoJ("keystore", map[string]any{"op": "recovery", "result": "fallback"})
        return sk, nil
    }
    metrics.Inc("keystore_recovery_total", map[string]string{"result": "fail"})
    logger.InfoJ("keystore", map[string]any{"op": "recovery", "result": "miss"})
    return SigningKey{}, ErrKeyNotFound
}

func newAESGCM(key []byte) (cipher.AEAD, error) {
    block, err := aes.NewCipher(key)
    if err != nil { return nil, err }
    return cipher.NewGCM(block)
}

// zero clears slice contents (best-effort).
func zero(b []byte) {
    for i := range b {
        b[i] = 0
    }
}
