package graph

import (
	"crypto/sha1"
	"encoding/hex"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// AssetRegistry backs Driver.EmitAsset with a content-addressed id
// scheme: the same bytes emitted twice collapse to one id, and each id
// is the name's base plus the first 8 hex digits of the payload's sha1
// plus the extension, so two different payloads under one name get
// distinct ids. A random suffix is added only when that derived id is
// already taken.
type AssetRegistry struct {
	mu       sync.Mutex
	byDigest map[string]string // sha1 hex -> assigned id
	names    map[string]bool   // assigned ids already in use
	sources  map[string][]byte
}

func NewAssetRegistry() *AssetRegistry {
	return &AssetRegistry{
		byDigest: make(map[string]string),
		names:    make(map[string]bool),
		sources:  make(map[string][]byte),
	}
}

// Emit returns the id for source, reusing a prior id if this exact
// content was already emitted under this name.
func (r *AssetRegistry) Emit(name string, source []byte) string {
	sum := sha1.Sum(source)
	digest := hex.EncodeToString(sum[:])
	digestKey := name + "\x00" + digest

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byDigest[digestKey]; ok {
		return id
	}

	id := assetIDFromDigest(name, digest)
	if r.names[id] {
		// Same short name, different content: fall back to a random
		// disambiguator rather than reusing a colliding hash prefix.
		id = assetIDFromUUID(name)
	}
	r.names[id] = true
	r.byDigest[digestKey] = id
	r.sources[id] = source
	return id
}

func (r *AssetRegistry) Source(id string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.sources[id]
	return src, ok
}

func assetIDFromDigest(name, digest string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(filepath.Base(name), ext)
	short := digest
	if len(short) > 8 {
		short = short[:8]
	}
	return base + "-" + short + ext
}

func assetIDFromUUID(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(filepath.Base(name), ext)
	return base + "-" + uuid.NewString() + ext
}
