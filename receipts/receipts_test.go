package receipts

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/bidvault/core"
)

func testReceipt() Receipt {
	return Receipt{
		ReceiptID: uuid.NewString(),
		RequestID: "req-42",
		Action:    "bid",
		Sender:    "bidder1",
		Instructions: []core.PaymentInstruction{
			{ToAddress: "owner1", Denom: "juno", Amount: 30},
		},
		Attributes: []core.Attribute{{Key: "fee", Value: "30"}},
		Timestamp:  time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestSignAndVerifyRoundtrip(t *testing.T) {
	key, err := GenerateSigningKey()
	assert.NoError(t, err)
	signer, err := NewSigner(key)
	assert.NoError(t, err)

	in := testReceipt()
	signed, err := signer.Sign(in)
	assert.NoError(t, err)
	check.True(t, len(signed) > 0)

	out, err := Verify(signed, signer.PublicKey())
	assert.NoError(t, err)
	check.Equal(t, in.ReceiptID, out.ReceiptID)
	check.Equal(t, in.Action, out.Action)
	check.Equal(t, in.Sender, out.Sender)
	check.Equal(t, in.Instructions, out.Instructions)
	check.Equal(t, in.Attributes, out.Attributes)
	check.True(t, in.Timestamp.Equal(out.Timestamp))
}

func TestVerify_WrongKeyFails(t *testing.T) {
	key, err := GenerateSigningKey()
	assert.NoError(t, err)
	signer, err := NewSigner(key)
	assert.NoError(t, err)

	signed, err := signer.Sign(testReceipt())
	assert.NoError(t, err)

	otherKey, err := GenerateSigningKey()
	assert.NoError(t, err)
	_, err = Verify(signed, &otherKey.PublicKey)
	check.Error(t, err)
}

func TestVerify_TamperedPayloadFails(t *testing.T) {
	key, err := GenerateSigningKey()
	assert.NoError(t, err)
	signer, err := NewSigner(key)
	assert.NoError(t, err)

	signed, err := signer.Sign(testReceipt())
	assert.NoError(t, err)

	// Flip a byte near the middle, inside the embedded payload.
	tampered := make([]byte, len(signed))
	copy(tampered, signed)
	tampered[len(tampered)/2] ^= 0xff

	_, err = Verify(tampered, signer.PublicKey())
	check.Error(t, err)
}

func TestVerify_GarbageFails(t *testing.T) {
	key, err := GenerateSigningKey()
	assert.NoError(t, err)

	_, err = Verify([]byte("not cose at all"), &key.PublicKey)
	check.Error(t, err)
}
