// Package signature produces detached Ed25519 signatures for JSON-RPC
// request bodies.
//
// A signature travels in the Signature header as a JSON descriptor modelled
// on a linked-data verification method: the signer's public key in base58,
// its controller, an optional expiry, and a detached JWS over the exact body
// bytes that were sent.
//
//	s, _ := signature.NewSigner(priv, "did:example:alice")
//	call.Signer = s
//
// A server recomputes nothing; it calls Verify with the header value and the
// body it received.
package signature

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/mr-tron/base58"
)

const (
	DefaultContext = "https://w3id.org/security/v2"
	KeyType        = "Ed25519VerificationKey2018"
)

var (
	ErrExpired   = errors.New("signature: descriptor expired")
	ErrMalformed = errors.New("signature: malformed descriptor")
)

// Descriptor is the value sent in the Signature header.
type Descriptor struct {
	Context         []string `json:"@context"`
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	Controller      string   `json:"controller"`
	Expires         string   `json:"expires,omitempty"`
	PublicKeyBase58 string   `json:"publicKeyBase58"`
	// JWS is a compact JWS with a detached payload: the request body.
	JWS string `json:"jws,omitempty"`
}

// Signer signs request bodies with an Ed25519 key.
type Signer struct {
	key        ed25519.PrivateKey
	controller string
	signer     jose.Signer

	// Lifetime, when positive, sets the descriptor's expiry relative to the
	// signing time.
	Lifetime time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

func NewSigner(key ed25519.PrivateKey, controller string) (*Signer, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signature: invalid Ed25519 private key length %d", len(key))
	}
	s := &Signer{
		key:        key,
		controller: controller,
		Now:        time.Now,
	}
	opts := (&jose.SignerOptions{}).WithHeader(jose.HeaderKey("kid"), s.keyID())
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.EdDSA, Key: key}, opts)
	if err != nil {
		return nil, err
	}
	s.signer = signer
	return s, nil
}

func (s *Signer) publicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

func (s *Signer) keyID() string {
	return s.controller + "#" + base58.Encode(s.publicKey())
}

// Descriptor returns the unsigned descriptor for the signer's key.
func (s *Signer) Descriptor() *Descriptor {
	d := &Descriptor{
		Context:         []string{DefaultContext},
		ID:              s.keyID(),
		Type:            KeyType,
		Controller:      s.controller,
		PublicKeyBase58: base58.Encode(s.publicKey()),
	}
	if s.Lifetime > 0 {
		now := time.Now
		if s.Now != nil {
			now = s.Now
		}
		d.Expires = now().Add(s.Lifetime).UTC().Format(time.RFC3339)
	}
	return d
}

// Sign returns a descriptor carrying a detached JWS over body.
func (s *Signer) Sign(body []byte) (interface{}, error) {
	obj, err := s.signer.Sign(body)
	if err != nil {
		return nil, err
	}
	jws, err := obj.DetachedCompactSerialize()
	if err != nil {
		return nil, err
	}
	d := s.Descriptor()
	d.JWS = jws
	return d, nil
}

// Parse decodes a Signature header value.
func Parse(header string) (*Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal([]byte(header), &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &d, nil
}

// Verify checks that d signs body and has not expired at now.
func Verify(d *Descriptor, body []byte, now time.Time) error {
	if d == nil || d.JWS == "" || d.PublicKeyBase58 == "" {
		return ErrMalformed
	}
	if d.Expires != "" {
		expires, err := time.Parse(time.RFC3339, d.Expires)
		if err != nil {
			return fmt.Errorf("%w: expires: %v", ErrMalformed, err)
		}
		if !now.Before(expires) {
			return ErrExpired
		}
	}
	pub, err := base58.Decode(d.PublicKeyBase58)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: public key", ErrMalformed)
	}
	jws, err := jose.ParseDetached(d.JWS, body, []jose.SignatureAlgorithm{jose.EdDSA})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := jws.Verify(ed25519.PublicKey(pub)); err != nil {
		return err
	}
	return nil
}
