package chat_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/enspay/balance"
	"github.com/vitwit/enspay/chat"
	"github.com/vitwit/enspay/clients"
	"github.com/vitwit/enspay/clients/clienttest"
	"github.com/vitwit/enspay/intent"
	"github.com/vitwit/enspay/knowledge"
	"github.com/vitwit/enspay/payment"
	"github.com/vitwit/enspay/registry"
	"github.com/vitwit/enspay/resolver"
	"github.com/vitwit/enspay/txbuilder"
	"github.com/vitwit/enspay/types"
)

const (
	userAddr = "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb1"
	usdcAddr = "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"
)

func newHandler(t *testing.T) (*chat.Handler, *knowledge.Store) {
	t.Helper()
	fake := clienttest.New()
	store := knowledge.NewStore()
	chains := []types.ChainConfig{
		{ChainID: types.ChainSepolia, Name: "Sepolia", RPCURL: "http://test", USDCAddress: usdcAddr},
	}
	reg := registry.New(chains, 0, func(string) (clients.ChainClient, error) {
		return fake, nil
	})
	checker := balance.New(store, reg, nil, nil)
	orch := payment.New(
		intent.New(store, nil, nil, nil),
		resolver.New(store, reg, nil),
		checker,
		txbuilder.New(reg, nil, nil),
		store, nil, nil, nil,
	)
	return chat.New(orch, checker, store, nil, types.ChainSepolia, nil), store
}

func TestHandleMessage_PaymentRoute(t *testing.T) {
	h, store := newHandler(t)
	store.CacheBalance(userAddr, decimal.RequireFromString("100.0"))

	reply := h.HandleMessage(context.Background(), types.ChatMessage{
		Message: "Send 5 USDC to alice.eth",
		UserID:  userAddr,
	})

	assert.True(t, reply.RequiresWallet)
	require.NotNil(t, reply.TransactionData)
	assert.Equal(t, "token_transfer", reply.TransactionData.Type)
	assert.Equal(t, userAddr, reply.TransactionData.From)
	assert.Equal(t, "5", reply.TransactionData.Amount)
	assert.Equal(t, "USDC", reply.TransactionData.Token)
	assert.Equal(t, "alice.eth", reply.TransactionData.Recipient)
	assert.Equal(t, usdcAddr, reply.TransactionData.To)
	assert.Contains(t, reply.Message, "Transaction ready")
	assert.Contains(t, reply.Message, "100.00 USDC")
}

func TestHandleMessage_PaymentWithoutWallet(t *testing.T) {
	h, _ := newHandler(t)

	reply := h.HandleMessage(context.Background(), types.ChatMessage{Message: "send 5 usdc to alice.eth"})

	assert.True(t, reply.RequiresWallet)
	assert.Nil(t, reply.TransactionData)
	assert.Contains(t, reply.Message, "connect your wallet")
}

func TestHandleMessage_PaymentFailurePropagatesError(t *testing.T) {
	h, store := newHandler(t)
	store.CacheBalance(userAddr, decimal.RequireFromString("1.0"))

	reply := h.HandleMessage(context.Background(), types.ChatMessage{
		Message: "Send 5 USDC to alice.eth",
		UserID:  userAddr,
	})

	assert.Nil(t, reply.TransactionData)
	assert.Contains(t, reply.Message, "Insufficient balance")
}

func TestHandleMessage_BalanceRoute(t *testing.T) {
	h, store := newHandler(t)
	store.CacheBalance(userAddr, decimal.RequireFromString("42.5"))

	reply := h.HandleMessage(context.Background(), types.ChatMessage{Message: "balance", UserID: userAddr})

	assert.Contains(t, reply.Message, "42.50 USDC")
	assert.False(t, reply.RequiresWallet)
}

func TestHandleMessage_BalanceWithoutWallet(t *testing.T) {
	h, _ := newHandler(t)

	reply := h.HandleMessage(context.Background(), types.ChatMessage{Message: "balance"})

	assert.True(t, reply.RequiresWallet)
}

func TestHandleMessage_InfoRoutes(t *testing.T) {
	h, _ := newHandler(t)
	ctx := context.Background()

	help := h.HandleMessage(ctx, types.ChatMessage{Message: "help"})
	assert.Contains(t, help.Message, "Send 5 USDC to alice.eth")

	status := h.HandleMessage(ctx, types.ChatMessage{Message: "status"})
	assert.Contains(t, status.Message, "Online and ready")

	knowledgeReply := h.HandleMessage(ctx, types.ChatMessage{Message: "knowledge"})
	assert.Contains(t, knowledgeReply.Message, "Total facts")
}

func TestHandleMessage_GeneralGreeting(t *testing.T) {
	h, _ := newHandler(t)

	reply := h.HandleMessage(context.Background(), types.ChatMessage{Message: "hello"})

	assert.Contains(t, reply.Message, "payment assistant")
	assert.False(t, reply.RequiresWallet)
}

func TestHandleMessage_UnknownFallsBack(t *testing.T) {
	h, _ := newHandler(t)

	reply := h.HandleMessage(context.Background(), types.ChatMessage{Message: "what can you do"})

	assert.Contains(t, reply.Message, "specialize in ENS payments")
}
