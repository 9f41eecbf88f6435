// Package pgp is the OpenPGP collaborator used for profile key uploads and
// for encrypting direct messages to accounts that published a public key.
// It is backed by golang.org/x/crypto/openpgp; key management stays with the
// caller.
package pgp

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
)

const messageType = "PGP MESSAGE"

var (
	// ErrNoKey is returned when an armored input holds no usable key.
	ErrNoKey = errors.New("pgp: no key found")
	// ErrNoKeyring is returned by Decrypt when no private keyring is loaded.
	ErrNoKeyring = errors.New("pgp: no private keyring")
)

// Cipher encrypts to a recipient's public key and decrypts with the local
// private keyring.
type Cipher interface {
	Encrypt(plaintext, recipientArmoredKey string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// OpenPGP implements Cipher.
type OpenPGP struct {
	keyring openpgp.EntityList
}

var _ Cipher = (*OpenPGP)(nil)

// New returns an OpenPGP cipher. armoredPrivate may be empty, in which case
// only Encrypt is usable.
func New(armoredPrivate string) (*OpenPGP, error) {
	o := &OpenPGP{}
	if strings.TrimSpace(armoredPrivate) == "" {
		return o, nil
	}
	kr, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armoredPrivate))
	if err != nil {
		return nil, fmt.Errorf("pgp: read private keyring: %w", err)
	}
	o.keyring = kr
	return o, nil
}

// ReadPublicKey parses the first entity of an armored public key block.
func ReadPublicKey(armored string) (*openpgp.Entity, error) {
	list, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armored))
	if err != nil {
		return nil, fmt.Errorf("pgp: read public key: %w", err)
	}
	if len(list) == 0 {
		return nil, ErrNoKey
	}
	return list[0], nil
}

// Fingerprint returns the upper-case hex fingerprint of an armored public key.
func Fingerprint(armored string) (string, error) {
	e, err := ReadPublicKey(armored)
	if err != nil {
		return "", err
	}
	fp := e.PrimaryKey.Fingerprint
	return strings.ToUpper(hex.EncodeToString(fp[:])), nil
}

// Encrypt encrypts plaintext to the given armored public key and returns an
// armored PGP message.
func (o *OpenPGP) Encrypt(plaintext, recipientArmoredKey string) (string, error) {
	to, err := openpgp.ReadArmoredKeyRing(strings.NewReader(recipientArmoredKey))
	if err != nil {
		return "", fmt.Errorf("pgp: read recipient key: %w", err)
	}
	if len(to) == 0 {
		return "", ErrNoKey
	}

	var buf bytes.Buffer
	aw, err := armor.Encode(&buf, messageType, nil)
	if err != nil {
		return "", err
	}
	pw, err := openpgp.Encrypt(aw, to, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("pgp: encrypt: %w", err)
	}
	if _, err := io.WriteString(pw, plaintext); err != nil {
		return "", err
	}
	if err := pw.Close(); err != nil {
		return "", err
	}
	if err := aw.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Decrypt decrypts an armored PGP message with the loaded private keyring.
func (o *OpenPGP) Decrypt(ciphertext string) (string, error) {
	if len(o.keyring) == 0 {
		return "", ErrNoKeyring
	}
	block, err := armor.Decode(strings.NewReader(ciphertext))
	if err != nil {
		return "", fmt.Errorf("pgp: decode armor: %w", err)
	}
	if block.Type != messageType {
		return "", fmt.Errorf("pgp: unexpected block type %q", block.Type)
	}
	md, err := openpgp.ReadMessage(block.Body, o.keyring, nil, nil)
	if err != nil {
		return "", fmt.Errorf("pgp: read message: %w", err)
	}
	out, err := io.ReadAll(md.UnverifiedBody)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
