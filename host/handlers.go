package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/cloudx-io/bidvault/core"
	"github.com/cloudx-io/bidvault/engine"
	"github.com/cloudx-io/bidvault/hostapi"
	"github.com/cloudx-io/bidvault/receipts"
)

func (s *Server) handleInstantiate(req hostapi.InstantiateRequest) hostapi.ExecuteResponse {
	resp, err := s.engine.Instantiate(context.Background(), req.Sender, engine.InstantiateMsg{
		Owner:         req.Owner,
		RequiredDenom: req.RequiredDenom,
		FeeRate:       req.FeeRate,
	})
	if err != nil {
		log.Printf("ERROR: Instantiate failed: %v", err)
		return executeFailure(req.RequestID, err)
	}

	log.Printf("INFO: Instantiated auction for denom %s", req.RequiredDenom)
	return s.executeSuccess(req.RequestID, "instantiate", req.Sender, resp)
}

func (s *Server) handleExecute(req hostapi.ExecuteRequest) hostapi.ExecuteResponse {
	action, err := req.Action.Name()
	if err != nil {
		return executeFailure(req.RequestID, err)
	}

	ctx := context.Background()
	var resp *engine.Response
	switch action {
	case "bid":
		resp, err = s.engine.Bid(ctx, req.Sender, req.Funds)
	case "close":
		resp, err = s.engine.Close(ctx, req.Sender)
	case "retract":
		resp, err = s.engine.Retract(ctx, req.Sender, req.Action.Retract.Recipient)
	}
	if err != nil {
		log.Printf("ERROR: %s by %s failed: %v", action, req.Sender, err)
		return executeFailure(req.RequestID, err)
	}

	log.Printf("INFO: %s by %s succeeded with %d instruction(s)", action, req.Sender, len(resp.Instructions))
	return s.executeSuccess(req.RequestID, action, req.Sender, resp)
}

func (s *Server) executeSuccess(requestID, action, sender string, resp *engine.Response) hostapi.ExecuteResponse {
	out := hostapi.ExecuteResponse{
		Type:         "execute_response",
		RequestID:    requestID,
		Success:      true,
		Instructions: resp.Instructions,
		Attributes:   resp.Attributes,
	}

	if s.signer != nil {
		signed, err := s.signer.Sign(receipts.Receipt{
			ReceiptID:    uuid.NewString(),
			RequestID:    requestID,
			Action:       action,
			Sender:       sender,
			Instructions: resp.Instructions,
			Attributes:   resp.Attributes,
			Timestamp:    time.Now().UTC(),
		})
		if err != nil {
			// The action already committed; a receipt failure must not turn
			// it into a reported failure.
			log.Printf("ERROR: Failed to sign receipt for %s: %v", action, err)
		} else {
			out.ReceiptBase64 = base64.StdEncoding.EncodeToString(signed)
		}
	}
	return out
}

func executeFailure(requestID string, err error) hostapi.ExecuteResponse {
	return hostapi.ExecuteResponse{
		Type:      "execute_response",
		RequestID: requestID,
		Success:   false,
		Message:   err.Error(),
		ErrorKind: core.ErrorKind(err),
	}
}

func (s *Server) handleQuery(req hostapi.QueryRequest) hostapi.QueryResponse {
	ctx := context.Background()
	out := hostapi.QueryResponse{Type: "query_response", RequestID: req.RequestID}

	switch {
	case req.Query.BidderTotalBid != nil:
		amount, err := s.engine.BidderTotalBid(ctx, req.Query.BidderTotalBid.Address)
		if err != nil {
			return queryFailure(req.RequestID, err)
		}
		out.Success = true
		out.BidderTotalBid = &amount

	case req.Query.HighestBidInfo != nil:
		info, err := s.engine.HighestBid(ctx)
		if err != nil {
			return queryFailure(req.RequestID, err)
		}
		out.Success = true
		out.HighestBidInfo = &hostapi.HighestBidInfoResult{
			Bidder: info.Bidder,
			Amount: info.Amount,
			Closed: info.Closed,
		}

	case req.Query.TotalNumberOfParticipants != nil:
		count, err := s.engine.TotalParticipants(ctx)
		if err != nil {
			return queryFailure(req.RequestID, err)
		}
		out.Success = true
		out.TotalNumberOfParticipants = &count

	default:
		return queryFailure(req.RequestID, fmt.Errorf("exactly one query must be set"))
	}
	return out
}

func queryFailure(requestID string, err error) hostapi.QueryResponse {
	log.Printf("ERROR: Query failed: %v", err)
	return hostapi.QueryResponse{
		Type:      "query_response",
		RequestID: requestID,
		Success:   false,
		Message:   err.Error(),
	}
}
