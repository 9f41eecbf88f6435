package webfinger

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"

	"github.com/tbourn/go-fedi-core/internal/domain"
	"github.com/tbourn/go-fedi-core/internal/utils"
)

// Link relations used in local discovery documents.
const (
	RelProfilePage    = "http://webfinger.net/rel/profile-page"
	RelUpdatesFrom    = "http://schemas.google.com/g/2010#updates-from"
	RelMagicPublicKey = "magic-public-key"
	RelSelf           = "self"

	instanceActorName = "actor"
	instanceInbox     = "inbox"
)

// ErrBadPublicKey is returned when the supplied PEM is not an RSA public key.
var ErrBadPublicKey = errors.New("webfinger: public key is not an RSA public key")

// Account describes a local account for which a discovery document is built.
type Account struct {
	Nickname     string
	Domain       string // without port
	Port         int
	HTTPPrefix   string
	PublicKeyPEM string
	Group        bool
}

// CreateEndpoint builds the webfinger document of a local account. The
// nicknames "inbox" and the bare domain name denote the instance actor.
func CreateEndpoint(a Account) (*domain.Webfinger, error) {
	magic, err := MagicPublicKey(a.PublicKeyPEM)
	if err != nil {
		return nil, err
	}

	full := utils.FullDomain(a.Domain, a.Port)
	base := a.HTTPPrefix + "://" + full

	personName := a.Nickname
	actorID := utils.ActorURL(a.HTTPPrefix, full, a.Nickname)
	if a.Group {
		actorID = utils.ActorURL(a.HTTPPrefix, full, "!"+a.Nickname)
	}
	subject := "acct:" + a.Nickname + "@" + a.Domain
	profilePage := base + "/@" + a.Nickname

	if a.Nickname == instanceInbox || a.Nickname == a.Domain {
		personName = instanceActorName
		actorID = base + "/" + instanceActorName
		subject = "acct:" + a.Domain + "@" + a.Domain
		profilePage = base + "/about/more?instance_actor=true"
	}
	personLink := base + "/@" + personName

	return &domain.Webfinger{
		Subject: subject,
		Aliases: []string{personLink, actorID},
		Links: []domain.Link{
			{Rel: RelProfilePage, Type: "text/html", Href: profilePage},
			{Rel: RelUpdatesFrom, Type: "application/atom+xml", Href: actorID + ".atom"},
			{Rel: RelSelf, Type: "application/activity+json", Href: actorID},
			{Rel: RelMagicPublicKey, Href: magic},
		},
	}, nil
}

// MagicPublicKey encodes an RSA public key PEM (PKIX or PKCS#1) as a
// "data:application/magic-public-key,RSA.{modulus}.{exponent}" URI with
// base64url components.
func MagicPublicKey(publicKeyPEM string) (string, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return "", ErrBadPublicKey
	}

	var key *rsa.PublicKey
	switch block.Type {
	case "PUBLIC KEY":
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrBadPublicKey, err)
		}
		k, ok := pub.(*rsa.PublicKey)
		if !ok {
			return "", ErrBadPublicKey
		}
		key = k
	case "RSA PUBLIC KEY":
		k, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrBadPublicKey, err)
		}
		key = k
	default:
		return "", ErrBadPublicKey
	}

	mod := base64.URLEncoding.EncodeToString(key.N.Bytes())
	exp := base64.URLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes())
	return "data:application/magic-public-key,RSA." + mod + "." + exp, nil
}
