package security

import (
	"crypto/x509"
	"fmt"
)

// MarshalKeyPair renders kp to DER bytes for embedding in a gob-encoded
// profile or meta-file. Private is nil for a keypair whose private half
// was withheld (e.g. a friend's copy of a shared folder's keypair, in a
// future access-revocation scheme).
type KeyPairDER struct {
	PublicDER  []byte
	PrivateDER []byte // empty when Private is nil
}

func MarshalKeyPair(kp KeyPair) (KeyPairDER, error) {
	if kp.Public == nil {
		return KeyPairDER{}, fmt.Errorf("marshal keypair: nil public key")
	}
	out := KeyPairDER{PublicDER: x509.MarshalPKCS1PublicKey(kp.Public)}
	if kp.Private != nil {
		out.PrivateDER = x509.MarshalPKCS1PrivateKey(kp.Private)
	}
	return out, nil
}

func UnmarshalKeyPair(der KeyPairDER) (KeyPair, error) {
	pub, err := x509.ParsePKCS1PublicKey(der.PublicDER)
	if err != nil {
		return KeyPair{}, fmt.Errorf("parse public key: %w", err)
	}
	kp := KeyPair{Public: pub}
	if len(der.PrivateDER) > 0 {
		priv, err := x509.ParsePKCS1PrivateKey(der.PrivateDER)
		if err != nil {
			return KeyPair{}, fmt.Errorf("parse private key: %w", err)
		}
		kp.Private = priv
		kp.Public = &priv.PublicKey
	}
	return kp, nil
}
