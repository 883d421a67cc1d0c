package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	analytics "gopkg.in/segmentio/analytics-go.v3"

	"github.com/grindery-io/wallet-api/core/config"
	"github.com/grindery-io/wallet-api/internal/model"
)

type notifier struct {
	segment analytics.Client // nil when no write key is configured
	flowxo  *FlowXOClient
	cfg     config.FlowXOConfig
	logger  *slog.Logger

	// wg lets tests and shutdown wait for in-flight notifications.
	wg sync.WaitGroup
}

// New builds the production notifier. segment may be nil to disable the
// analytics sink.
func New(segment analytics.Client, flowxo *FlowXOClient, cfg config.FlowXOConfig, logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &notifier{
		segment: segment,
		flowxo:  flowxo,
		cfg:     cfg,
		logger:  logger,
	}
}

func (n *notifier) TransferCompleted(ctx context.Context, t *model.Transfer, completedAt time.Time) {
	props := map[string]any{
		"eventId":         t.EventID,
		"chainId":         t.ChainID,
		"tokenSymbol":     t.TokenSymbol,
		"tokenAddress":    t.TokenAddress,
		"senderTgId":      t.SenderTgID,
		"senderWallet":    t.SenderWallet,
		"senderName":      t.SenderName,
		"senderHandle":    t.SenderHandle,
		"recipientTgId":   t.RecipientTgID,
		"recipientWallet": t.RecipientWallet,
		"tokenAmount":     t.TokenAmount,
		"transactionHash": t.TransactionHash,
		"dateAdded":       completedAt,
	}
	n.fanOut(ctx, t.SenderTgID, "Transfer Completed", n.cfg.TransferWebhook, props)
}

func (n *notifier) RewardCompleted(ctx context.Context, r *model.Reward, completedAt time.Time) {
	props := map[string]any{
		"eventId":         r.EventID,
		"userTelegramID":  r.UserTelegramID,
		"responsePath":    r.ResponsePath,
		"walletAddress":   r.WalletAddress,
		"reason":          r.Reason,
		"amount":          r.Amount,
		"message":         r.Message,
		"transactionHash": r.TransactionHash,
		"dateAdded":       completedAt,
	}
	if r.ParentTransactionHash != "" {
		props["parentTransactionHash"] = r.ParentTransactionHash
	}
	if r.SponsoredTgID != "" {
		props["sponsoredUserTelegramID"] = r.SponsoredTgID
	}
	n.fanOut(ctx, r.UserTelegramID, "Reward Completed", n.cfg.RewardWebhook, props)
}

func (n *notifier) SwapCompleted(ctx context.Context, s *model.Swap, completedAt time.Time) {
	props := map[string]any{
		"eventId":         s.EventID,
		"userTelegramID":  s.UserTelegramID,
		"userWallet":      s.UserWallet,
		"chainId":         s.ChainID,
		"tokenIn":         s.TokenIn,
		"amountIn":        s.AmountIn,
		"tokenOut":        s.TokenOut,
		"amountOut":       s.AmountOut,
		"priceImpact":     s.PriceImpact,
		"transactionHash": s.TransactionHash,
		"dateAdded":       completedAt,
	}
	n.fanOut(ctx, s.UserTelegramID, "Swap Completed", n.cfg.SwapWebhook, props)
}

func (n *notifier) VestingCompleted(ctx context.Context, v *model.Vesting, completedAt time.Time) {
	recipients := make([]map[string]any, len(v.Recipients))
	for i, r := range v.Recipients {
		recipients[i] = map[string]any{
			"recipientAddress": r.RecipientAddress,
			"amount":           r.Amount,
		}
	}
	props := map[string]any{
		"eventId":         v.EventID,
		"userTelegramID":  v.UserTelegramID,
		"senderWallet":    v.SenderWallet,
		"chainId":         v.ChainID,
		"tokenAddress":    v.TokenAddress,
		"recipients":      recipients,
		"transactionHash": v.TransactionHash,
		"dateAdded":       completedAt,
	}
	n.fanOut(ctx, v.UserTelegramID, "Vesting Completed", n.cfg.VestingWebhook, props)
}

func (n *notifier) UserCreated(ctx context.Context, u *model.User) {
	// Identify rather than track: this seeds the analytics profile.
	if n.segment != nil {
		traits := analytics.NewTraits().
			Set("userTelegramID", u.UserTelegramID).
			Set("userHandle", u.UserHandle).
			Set("userName", u.UserName).
			Set("patchwallet", u.PatchWallet)
		if err := n.segment.Enqueue(analytics.Identify{
			UserId: u.UserTelegramID,
			Traits: traits,
		}); err != nil {
			n.logger.WarnContext(ctx, "segment identify failed", "error", err)
		}
	}

	props := map[string]any{
		"userTelegramID": u.UserTelegramID,
		"responsePath":   u.ResponsePath,
		"userHandle":     u.UserHandle,
		"userName":       u.UserName,
		"patchwallet":    u.PatchWallet,
		"dateAdded":      u.DateAdded,
	}
	n.postFlowXO(ctx, n.cfg.NewUserWebhook, props)
}

// fanOut fires both sinks concurrently. Neither outcome is surfaced to the
// caller; by now the operation is already success.
func (n *notifier) fanOut(ctx context.Context, userID, event, webhookURL string, props map[string]any) {
	// Detach from the request context: a canceled delivery must not cancel
	// notifications for an effect that already happened.
	ctx = context.WithoutCancel(ctx)

	if n.segment != nil {
		properties := analytics.NewProperties()
		for k, v := range props {
			properties = properties.Set(k, v)
		}
		if err := n.segment.Enqueue(analytics.Track{
			UserId:     userID,
			Event:      event,
			Properties: properties,
		}); err != nil {
			n.logger.WarnContext(ctx, "segment track failed", "event", event, "error", err)
		}
	}

	n.postFlowXO(ctx, webhookURL, props)
}

func (n *notifier) postFlowXO(ctx context.Context, webhookURL string, props map[string]any) {
	if n.flowxo == nil || webhookURL == "" {
		return
	}

	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		postCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		defer cancel()
		if err := n.flowxo.Post(postCtx, webhookURL, props); err != nil {
			n.logger.WarnContext(postCtx, "flowxo notification failed", "error", err)
		}
	}()
}
