// Package chat is the conversational front-end. It routes free-text
// messages by keyword to the payment pipeline, balance lookups, or
// canned informational replies, and falls back to the language oracle
// for general conversation.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/vitwit/enspay/balance"
	"github.com/vitwit/enspay/knowledge"
	"github.com/vitwit/enspay/logger"
	"github.com/vitwit/enspay/oracle"
	"github.com/vitwit/enspay/payment"
	"github.com/vitwit/enspay/types"
)

// Keyword groups checked in order; the first matching group decides the
// route. Payment keywords win so "send ... balance" still pays.
var (
	paymentWords = []string{"send", "pay", "transfer", "usdc", ".eth"}
	statusWords  = []string{"status", "info"}
	helloWords   = []string{"hello", "hi", "hey"}
	thanksWords  = []string{"thank", "thanks"}
)

type Handler struct {
	orchestrator *payment.Orchestrator
	checker      *balance.Checker
	store        *knowledge.Store
	oracle       oracle.Oracle // nil disables oracle chat
	chainID      int64
	log          logger.Logger
}

func New(orch *payment.Orchestrator, checker *balance.Checker, store *knowledge.Store, orc oracle.Oracle, chainID int64, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Handler{
		orchestrator: orch,
		checker:      checker,
		store:        store,
		oracle:       orc,
		chainID:      chainID,
		log:          log,
	}
}

// HandleMessage dispatches one inbound message and always returns a
// reply; internal failures degrade to an apologetic message.
func (h *Handler) HandleMessage(ctx context.Context, msg types.ChatMessage) types.ChatReply {
	lower := strings.ToLower(msg.Message)

	switch {
	case containsAny(lower, paymentWords):
		return h.handlePayment(ctx, msg.Message, msg.UserID)
	case strings.Contains(lower, "balance"):
		return h.handleBalance(ctx, msg.UserID)
	case strings.Contains(lower, "help"):
		return h.handleHelp()
	case containsAny(lower, statusWords):
		return h.handleStatus()
	case strings.Contains(lower, "knowledge"):
		return h.handleKnowledge()
	default:
		return h.handleGeneral(ctx, msg.Message)
	}
}

func (h *Handler) handlePayment(ctx context.Context, message, userID string) types.ChatReply {
	if userID == "" {
		return types.ChatReply{
			Message:        "Please connect your wallet to process payments",
			RequiresWallet: true,
		}
	}

	result := h.orchestrator.HandlePaymentRequest(ctx, message, userID, h.chainID)
	if !result.Success {
		return types.ChatReply{Message: result.Error}
	}

	indicator := "MEDIUM"
	if result.Confidence > 0.8 {
		indicator = "HIGH"
	}

	body := fmt.Sprintf("Transaction ready: %s\n\nYour Balance: %s USDC\nConfidence: %.0f%% (%s)\nKnowledge Used: %d facts\n\nPlease approve the transaction in your connected wallet.",
		result.Summary,
		result.UserBalance.StringFixed(2),
		result.Confidence*100,
		indicator,
		len(result.FactsConsulted),
	)
	if result.Warning != "" {
		body += "\n\n" + result.Warning
	}

	return types.ChatReply{
		Message:        body,
		RequiresWallet: true,
		TransactionData: &types.WalletTransaction{
			To:        result.Transaction.To,
			Data:      result.Transaction.Data,
			Value:     result.Transaction.Value,
			GasLimit:  result.Transaction.GasLimit,
			ChainID:   result.Transaction.ChainID,
			From:      userID,
			Amount:    result.Intent.Amount.String(),
			Token:     result.Intent.Token,
			Recipient: result.Intent.Recipient,
			Type:      "token_transfer",
		},
	}
}

func (h *Handler) handleBalance(ctx context.Context, userID string) types.ChatReply {
	if userID == "" {
		return types.ChatReply{
			Message:        "Please connect your wallet to check balance",
			RequiresWallet: true,
		}
	}

	bal, err := h.checker.BalanceOf(ctx, userID, h.chainID)
	if err != nil {
		return types.ChatReply{Message: fmt.Sprintf("Could not check balance: %s", err.Error())}
	}

	stats := h.store.Stats()
	return types.ChatReply{
		Message: fmt.Sprintf("Balance: %s USDC\n\nKnowledge graph: %d facts learned\nReady for payments", bal.StringFixed(2), stats.Facts),
	}
}

func (h *Handler) handleHelp() types.ChatReply {
	return types.ChatReply{
		Message: "ENS Pay Agent Help\n\nPayment commands:\n- \"Send 5 USDC to alice.eth\"\n- \"Pay 10 USDC to vitalik.eth\"\n\nInfo commands:\n- \"balance\" - check your USDC\n- \"status\" - agent info\n- \"knowledge\" - reasoning stats",
	}
}

func (h *Handler) handleStatus() types.ChatReply {
	stats := h.store.Stats()
	oracleState := "not configured"
	if h.oracle != nil {
		oracleState = "active"
	}
	return types.ChatReply{
		Message: fmt.Sprintf("ENS Pay Agent Status\n\nOnline and ready\n- Language oracle: %s\n- Facts: %d\n- Rules: %d\n- ENS cache: %d entries\n- Balance cache: %d wallets",
			oracleState, stats.Facts, stats.Rules, stats.Aliases, stats.Balances),
	}
}

func (h *Handler) handleKnowledge() types.ChatReply {
	stats := h.store.Stats()
	recent := h.store.Recent(3)

	var b strings.Builder
	fmt.Fprintf(&b, "Knowledge Stats\n\n- Total facts: %d\n- Active rules: %d\n- ENS cache: %d names\n- Balance cache: %d wallets\n\nRecent learning:\n",
		stats.Facts, stats.Rules, stats.Aliases, stats.Balances)
	if len(recent) == 0 {
		b.WriteString("- No recent facts")
	}
	for _, fact := range recent {
		fmt.Fprintf(&b, "- %s\n", fact)
	}
	return types.ChatReply{Message: strings.TrimRight(b.String(), "\n")}
}

func (h *Handler) handleGeneral(ctx context.Context, message string) types.ChatReply {
	if h.oracle != nil {
		octx := oracle.Context{
			KnownAliases: h.store.AliasNames(),
			RecentFacts:  h.store.Recent(5),
		}
		reply, err := h.oracle.ChatResponse(ctx, message, octx)
		if err == nil && reply != "" {
			return types.ChatReply{Message: reply}
		}
		if err != nil {
			h.log.Debug("oracle chat unavailable", map[string]any{"error": err.Error()})
		}
	}

	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, helloWords):
		return types.ChatReply{Message: "Hello! I'm your ENS payment assistant. Try 'Send 5 USDC to alice.eth' or 'help' for options."}
	case containsAny(lower, thanksWords):
		return types.ChatReply{Message: "You're welcome! Happy to help with ENS payments anytime."}
	default:
		return types.ChatReply{Message: "I specialize in ENS payments.\n\nTry:\n- \"Send 5 USDC to vitalik.eth\"\n- \"balance\" to check your USDC\n- \"help\" for more commands"}
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
