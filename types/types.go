// Package types defines the shared data model for the enspay agent:
// payment intents, prepared transaction payloads, pipeline results and
// the error taxonomy used across services.
package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ParseMethod identifies which parsing path produced a PaymentIntent.
// Downstream code treats it as a signal of provenance, not a guarantee.
type ParseMethod string

const (
	ParseMethodOracle   ParseMethod = "oracle"
	ParseMethodMarkers  ParseMethod = "oracle-markers"
	ParseMethodPatterns ParseMethod = "patterns"
)

// PaymentIntent is the structured interpretation of a natural-language
// payment instruction. Immutable once returned by the parser.
type PaymentIntent struct {
	Success    bool            `json:"success"`
	Amount     decimal.Decimal `json:"amount"`
	Recipient  string          `json:"recipient,omitempty"`
	Token      string          `json:"token,omitempty"`
	Error      string          `json:"error,omitempty"`
	Confidence float64         `json:"confidence"`
	Method     ParseMethod     `json:"parsingMethod,omitempty"`
}

// TransactionPayload is an unsigned, unsubmitted ERC-20 transfer call.
// The agent never signs or broadcasts it; an external wallet does.
type TransactionPayload struct {
	// Token contract address the call is sent to.
	To string `json:"to"`

	// ABI-encoded transfer calldata as a 0x-prefixed hex string.
	Data string `json:"data"`

	// Always "0x0": no native currency accompanies a token transfer.
	Value string `json:"value"`

	// Gas limit as a 0x-prefixed hex integer.
	GasLimit string `json:"gasLimit"`

	// Chain ID as a 0x-prefixed hex integer.
	ChainID string `json:"chainId"`
}

// PaymentResult is the orchestrator's terminal output for one request.
// Either Success with the prepared transaction, or a user-displayable
// error. Both carry the tail of the fact log that backed the decision.
type PaymentResult struct {
	Success          bool                `json:"success"`
	Intent           *PaymentIntent      `json:"intent,omitempty"`
	RecipientAddress string              `json:"recipientAddress,omitempty"`
	UserBalance      decimal.Decimal     `json:"userBalance"`
	Transaction      *TransactionPayload `json:"transaction,omitempty"`
	Summary          string              `json:"summary,omitempty"`
	Confidence       float64             `json:"confidence,omitempty"`
	Warning          string              `json:"warning,omitempty"`
	Error            string              `json:"error,omitempty"`
	FactsConsulted   []string            `json:"factsConsulted,omitempty"`
}

// PaymentRequest is the inbound shape accepted by the payment endpoint.
type PaymentRequest struct {
	Prompt      string `json:"prompt" validate:"required"`
	UserAddress string `json:"user_address" validate:"required"`
	ChainID     int64  `json:"chain_id"`
}

// ChatMessage is the inbound shape for conversational traffic.
type ChatMessage struct {
	Message string `json:"message" validate:"required"`
	UserID  string `json:"user_id,omitempty"`
}

// WalletTransaction mirrors TransactionPayload augmented with the fields
// wallet integrations expect alongside the raw call.
type WalletTransaction struct {
	To        string `json:"to"`
	Data      string `json:"data"`
	Value     string `json:"value"`
	GasLimit  string `json:"gasLimit"`
	ChainID   string `json:"chainId"`
	From      string `json:"from"`
	Amount    string `json:"amount"`
	Token     string `json:"token"`
	Recipient string `json:"recipient"`
	Type      string `json:"type"`
}

// ChatReply is the agent's response to a ChatMessage.
type ChatReply struct {
	Message         string             `json:"message"`
	RequiresWallet  bool               `json:"requires_wallet,omitempty"`
	TransactionData *WalletTransaction `json:"transaction_data,omitempty"`
}

// Error is the structured error carried across service boundaries.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrInvalidIntent       = "INVALID_INTENT"
	ErrResolutionFailed    = "RESOLUTION_FAILED"
	ErrInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrUnsupportedChain    = "UNSUPPORTED_CHAIN"
	ErrEstimationFailed    = "ESTIMATION_FAILED"
	ErrTxPreparationFailed = "TX_PREPARATION_FAILED"
	ErrOracleUnavailable   = "ORACLE_UNAVAILABLE"
	ErrInternal            = "INTERNAL"
)
