// Package sign detaches-signs repomd.xml and exposes the corresponding
// public key, generalizing internal/signer/gpg.go's GPGSigner down to the
// one signature shape RPM repositories use (repomd.xml.asc, a detached
// OpenPGP signature) -- dropping its Debian-specific cleartext-signature
// machinery (InRelease/Release.gpg use a different, APT-only format that
// has no RPM-repository counterpart).
package sign

import (
	"bytes"
	"crypto"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"

	"github.com/cr-go/rpmrepo/errs"
)

// Signer holds a decrypted OpenPGP entity ready to produce detached
// signatures over repomd.xml.
type Signer struct {
	entity *openpgp.Entity
}

// New loads a private key from keyPath (armored or binary), decrypting it
// with passphrase if it is encrypted.
func New(keyPath, passphrase string) (*Signer, error) {
	if keyPath == "" {
		return nil, errs.New(errs.BadArg, "sign.New: empty key path")
	}

	f, err := os.Open(keyPath)
	if err != nil {
		return nil, errs.Wrap(errs.Io, "opening signing key", err).WithPath(keyPath)
	}
	defer f.Close()

	entityList, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		if _, serr := f.Seek(0, 0); serr != nil {
			return nil, errs.Wrap(errs.Crypto, "seeking key file", serr).WithPath(keyPath)
		}
		entityList, err = openpgp.ReadKeyRing(f)
		if err != nil {
			return nil, errs.Wrap(errs.Crypto, "reading signing key", err).WithPath(keyPath)
		}
	}
	if len(entityList) == 0 {
		return nil, errs.New(errs.Crypto, "no keys found in "+keyPath)
	}

	entity := entityList[0]
	if passphrase != "" {
		if entity.PrivateKey != nil && entity.PrivateKey.Encrypted {
			if err := entity.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
				return nil, errs.Wrap(errs.Crypto, "decrypting private key", err)
			}
		}
		for _, subkey := range entity.Subkeys {
			if subkey.PrivateKey != nil && subkey.PrivateKey.Encrypted {
				if err := subkey.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
					return nil, errs.Wrap(errs.Crypto, "decrypting subkey", err)
				}
			}
		}
	}

	return &Signer{entity: entity}, nil
}

// SignDetached produces an armored, detached OpenPGP signature over data
// (repomd.xml's bytes), suitable for writing out as repomd.xml.asc.
func (s *Signer) SignDetached(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	err := openpgp.ArmoredDetachSign(&buf, s.entity, bytes.NewReader(data), &packet.Config{
		DefaultHash: crypto.SHA512,
	})
	if err != nil {
		return nil, errs.Wrap(errs.Crypto, "creating detached signature", err)
	}
	return buf.Bytes(), nil
}

// PublicKey returns the signer's public key in armored format, the
// contents of a repository's RPM-GPG-KEY file.
func (s *Signer) PublicKey() ([]byte, error) {
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		return nil, errs.Wrap(errs.Crypto, "opening armor encoder", err)
	}
	if err := s.entity.Serialize(w); err != nil {
		w.Close()
		return nil, errs.Wrap(errs.Crypto, "serializing public key", err)
	}
	if err := w.Close(); err != nil {
		return nil, errs.Wrap(errs.Crypto, "closing armor encoder", err)
	}
	return buf.Bytes(), nil
}
