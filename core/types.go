package core

import "fmt"

// Amount is an integral quantity of currency units. All bid accounting is
// unsigned integer arithmetic; fractional values never occur.
type Amount uint64

// Coin is an amount of a specific currency denomination.
type Coin struct {
	Denom  string `json:"denom"`
	Amount Amount `json:"amount"`
}

func (c Coin) String() string {
	return fmt.Sprintf("%d%s", c.Amount, c.Denom)
}

// PaymentInstruction directs the external ledger to move currency to a
// destination identity. The engine emits instructions; it never moves funds
// itself.
type PaymentInstruction struct {
	ToAddress string `json:"to_address"`
	Denom     string `json:"denom"`
	Amount    Amount `json:"amount"`
}

// Attribute is an observable key/value pair attached to an action response.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CheckedAdd returns a+b, or ErrAmountOverflow if the sum does not fit.
func CheckedAdd(a, b Amount) (Amount, error) {
	sum := a + b
	if sum < a {
		return 0, fmt.Errorf("%w: %d + %d", ErrAmountOverflow, a, b)
	}
	return sum, nil
}

// CheckedSub returns a-b, or ErrAmountOverflow if b exceeds a.
func CheckedSub(a, b Amount) (Amount, error) {
	if b > a {
		return 0, fmt.Errorf("%w: %d - %d", ErrAmountOverflow, a, b)
	}
	return a - b, nil
}
