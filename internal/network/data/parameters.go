package data

import (
	"time"

	"github.com/hive2hive/h2h/internal/model"
	"github.com/hive2hive/h2h/internal/security"
)

// Parameters carries everything a get/put/remove needs, per spec.md §4.1.
// Puts that include a BasedOnKey require the overlay to enforce the
// version chain.
type Parameters struct {
	LocationKey string
	ContentKey  string
	VersionKey  model.VersionKey
	BasedOnKey  model.VersionKey
	ProtectionKey *security.KeyPair
	TTL         time.Duration
	Data        NetworkContent
}

func NewParameters(locationKey string, contentKey string) Parameters {
	return Parameters{LocationKey: locationKey, ContentKey: contentKey}
}

func (p Parameters) WithVersionKey(v model.VersionKey) Parameters {
	p.VersionKey = v
	return p
}

func (p Parameters) WithBasedOnKey(v model.VersionKey) Parameters {
	p.BasedOnKey = v
	return p
}

func (p Parameters) WithProtectionKey(kp *security.KeyPair) Parameters {
	p.ProtectionKey = kp
	return p
}

func (p Parameters) WithTTL(ttl time.Duration) Parameters {
	p.TTL = ttl
	return p
}

func (p Parameters) WithData(content NetworkContent) Parameters {
	p.Data = content
	return p
}
