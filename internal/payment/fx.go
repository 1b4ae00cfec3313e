package payment

import (
	"github.com/smallbiznis/certihub/internal/config"
	"github.com/smallbiznis/certihub/internal/payment/adapters"
	"github.com/smallbiznis/certihub/internal/payment/adapters/midtrans"
	"github.com/smallbiznis/certihub/internal/payment/adapters/native"
	"github.com/smallbiznis/certihub/internal/payment/repository"
	paymentservice "github.com/smallbiznis/certihub/internal/payment/service"
	"github.com/smallbiznis/certihub/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config) *adapters.Registry {
		return adapters.NewRegistry(
			native.New(cfg.Payment.NativeWebhookSecret),
			midtrans.New(cfg.Payment.MidtransServerKey, cfg.Payment.MidtransIsProduction),
		)
	}),
	fx.Provide(paymentservice.NewService),
	fx.Provide(webhook.NewService),
)
