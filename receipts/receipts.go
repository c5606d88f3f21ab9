// Package receipts produces signed records of executed auction actions.
// Each successful action can be countersigned as a COSE_Sign1 message so
// settlement infrastructure can verify offline exactly which payment
// instructions the engine emitted, and for whom.
package receipts

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/bidvault/core"
)

// Receipt is the signed payload: the action, its caller, and everything the
// engine emitted for it.
type Receipt struct {
	ReceiptID    string                    `cbor:"receipt_id"`
	RequestID    string                    `cbor:"request_id,omitempty"`
	Action       string                    `cbor:"action"`
	Sender       string                    `cbor:"sender"`
	Instructions []core.PaymentInstruction `cbor:"instructions,omitempty"`
	Attributes   []core.Attribute          `cbor:"attributes,omitempty"`
	Timestamp    time.Time                 `cbor:"timestamp"`
}

// Signer signs receipts with a local ECDSA P-256 key using ES256.
type Signer struct {
	key    *ecdsa.PrivateKey
	signer cose.Signer
}

// GenerateSigningKey creates a fresh P-256 receipt-signing key.
func GenerateSigningKey() (*ecdsa.PrivateKey, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return key, nil
}

// NewSigner wraps key in a COSE ES256 signer.
func NewSigner(key *ecdsa.PrivateKey) (*Signer, error) {
	signer, err := cose.NewSigner(cose.AlgorithmES256, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create COSE signer: %w", err)
	}
	return &Signer{key: key, signer: signer}, nil
}

// PublicKey returns the verification key for receipts produced by this
// signer.
func (s *Signer) PublicKey() *ecdsa.PublicKey {
	return &s.key.PublicKey
}

// Sign encodes the receipt as CBOR and wraps it in a tagged COSE_Sign1
// message.
func (s *Signer) Sign(receipt Receipt) ([]byte, error) {
	payload, err := cbor.Marshal(receipt)
	if err != nil {
		return nil, fmt.Errorf("encode receipt: %w", err)
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected[cose.HeaderLabelAlgorithm] = cose.AlgorithmES256
	msg.Payload = payload

	if err := msg.Sign(rand.Reader, nil, s.signer); err != nil {
		return nil, fmt.Errorf("sign receipt: %w", err)
	}

	signed, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("marshal signed receipt: %w", err)
	}
	return signed, nil
}

// Verify checks a COSE_Sign1 receipt against the signer's public key and
// returns the embedded receipt.
func Verify(signed []byte, pub *ecdsa.PublicKey) (*Receipt, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(signed); err != nil {
		return nil, fmt.Errorf("parse COSE_Sign1: %w", err)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, pub)
	if err != nil {
		return nil, fmt.Errorf("create verifier: %w", err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return nil, fmt.Errorf("receipt signature verification failed: %w", err)
	}

	var receipt Receipt
	if err := cbor.Unmarshal(msg.Payload, &receipt); err != nil {
		return nil, fmt.Errorf("decode receipt payload: %w", err)
	}
	return &receipt, nil
}
