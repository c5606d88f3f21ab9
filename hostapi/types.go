// Package hostapi defines the JSON wire types spoken by the bidvault daemon:
// one request document per connection, dispatched on the "type" field, with a
// typed response encoded back on the same connection.
package hostapi

import (
	"fmt"

	"github.com/cloudx-io/bidvault/core"
)

// Request type values.
const (
	TypePing        = "ping"
	TypeInstantiate = "instantiate"
	TypeExecute     = "execute"
	TypeQuery       = "query"
)

// InstantiateRequest creates the auction: owner (optional, defaults to the
// engine's own address), accepted denomination, and a decimal percentage fee
// rate ("3" charges 3%).
type InstantiateRequest struct {
	Type          string `json:"type"`
	RequestID     string `json:"request_id,omitempty"`
	Sender        string `json:"sender"`
	Owner         string `json:"owner,omitempty"`
	RequiredDenom string `json:"required_denom"`
	FeeRate       string `json:"fee_rate"`
}

// ExecuteRequest invokes one auction action. Exactly one of the Action
// fields must be set. Funds is the payment the caller attached; the hosting
// runtime, not the caller, is trusted to have actually escrowed it.
type ExecuteRequest struct {
	Type      string        `json:"type"`
	RequestID string        `json:"request_id,omitempty"`
	Sender    string        `json:"sender"`
	Funds     []core.Coin   `json:"funds,omitempty"`
	Action    ExecuteAction `json:"action"`
}

// ExecuteAction is the tagged union of the three actions.
type ExecuteAction struct {
	Bid     *BidAction     `json:"bid,omitempty"`
	Close   *CloseAction   `json:"close,omitempty"`
	Retract *RetractAction `json:"retract,omitempty"`
}

type BidAction struct{}

type CloseAction struct{}

// RetractAction optionally redirects the refund to a third-party recipient.
type RetractAction struct {
	Recipient string `json:"recipient,omitempty"`
}

// Name returns the action's name, or an error unless exactly one action is
// set.
func (a ExecuteAction) Name() (string, error) {
	set := 0
	name := ""
	if a.Bid != nil {
		set, name = set+1, "bid"
	}
	if a.Close != nil {
		set, name = set+1, "close"
	}
	if a.Retract != nil {
		set, name = set+1, "retract"
	}
	if set != 1 {
		return "", fmt.Errorf("exactly one action must be set, got %d", set)
	}
	return name, nil
}

// ExecuteResponse reports an action's outcome. On success it carries the
// payment instructions the engine emitted, the observable attributes, and
// (when the host signs receipts) a base64-encoded COSE_Sign1 receipt.
type ExecuteResponse struct {
	Type          string                    `json:"type"`
	RequestID     string                    `json:"request_id,omitempty"`
	Success       bool                      `json:"success"`
	Message       string                    `json:"message,omitempty"`
	ErrorKind     string                    `json:"error_kind,omitempty"`
	Instructions  []core.PaymentInstruction `json:"instructions,omitempty"`
	Attributes    []core.Attribute          `json:"attributes,omitempty"`
	ReceiptBase64 string                    `json:"receipt,omitempty"`
}

// QueryRequest invokes one read-only query. Exactly one Query field must be
// set. Queries are unauthenticated and never mutate state.
type QueryRequest struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Query     Query  `json:"query"`
}

// Query is the tagged union of the three queries.
type Query struct {
	BidderTotalBid            *BidderTotalBidQuery    `json:"bidder_total_bid,omitempty"`
	HighestBidInfo            *HighestBidInfoQuery    `json:"highest_bid_info,omitempty"`
	TotalNumberOfParticipants *TotalParticipantsQuery `json:"total_number_of_participants,omitempty"`
}

type BidderTotalBidQuery struct {
	Address string `json:"address"`
}

type HighestBidInfoQuery struct{}

type TotalParticipantsQuery struct{}

// QueryResponse carries exactly one result field, matching the query that
// was asked.
type QueryResponse struct {
	Type                      string                `json:"type"`
	RequestID                 string                `json:"request_id,omitempty"`
	Success                   bool                  `json:"success"`
	Message                   string                `json:"message,omitempty"`
	BidderTotalBid            *core.Amount          `json:"bidder_total_bid,omitempty"`
	HighestBidInfo            *HighestBidInfoResult `json:"highest_bid_info,omitempty"`
	TotalNumberOfParticipants *int                  `json:"total_number_of_participants,omitempty"`
}

// HighestBidInfoResult mirrors the engine's highest-bid answer. Bidder and
// Amount are null before the first bid.
type HighestBidInfoResult struct {
	Bidder *string      `json:"bidder,omitempty"`
	Amount *core.Amount `json:"amount,omitempty"`
	Closed bool         `json:"closed"`
}

// PingResponse answers health checks.
type PingResponse struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorResponse is returned for undecodable or unknown requests.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
