package service

import (
	"log/slog"

	"github.com/grindery-io/wallet-api/core/config"
	"github.com/grindery-io/wallet-api/internal/gateway"
	"github.com/grindery-io/wallet-api/internal/notify"
	"github.com/grindery-io/wallet-api/internal/store"
)

type Services struct {
	stores   *store.Stores
	gw       gateway.Client
	notifier notify.Notifier
	machine  *Machine
	cfg      config.Config
	logger   *slog.Logger
}

func NewServices(stores *store.Stores, gw gateway.Client, notifier notify.Notifier, cfg config.Config, logger *slog.Logger) *Services {
	return &Services{
		stores:   stores,
		gw:       gw,
		notifier: notifier,
		machine:  NewMachine(gw, logger),
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *Services) Transfers() *TransferService {
	return NewTransferService(s.stores.Transfers(), s.stores.Users(), s.machine, s.gw, s.notifier, s.logger)
}

func (s *Services) Rewards() *RewardService {
	return NewRewardService(s.stores.Rewards(), s.stores.Transfers(), s.stores.Users(), s.machine, s.gw, s.notifier, s.cfg.Rewards, s.logger)
}

func (s *Services) Swaps() *SwapService {
	return NewSwapService(s.stores.Swaps(), s.machine, s.gw, s.notifier, s.logger)
}

func (s *Services) Vestings() *VestingService {
	return NewVestingService(s.stores.Vestings(), s.machine, s.gw, s.notifier, s.cfg.Vesting, s.logger)
}

func (s *Services) NewUsers() *NewUserService {
	return NewNewUserService(s.stores.Users(), s.Rewards(), s.gw, s.notifier, s.logger)
}
