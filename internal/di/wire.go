//go:build wireinject
// +build wireinject

package di

import (
	"TradeHook/pkg/config"
	"TradeHook/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Exchange gateway
		ProvideUpbitStream,
		ProvideUpbitClient,
		ProvideExchange,
		ProvideCandleSource,

		// Pipeline services
		ProvideSignalCache,
		ProvideTrendGate,
		ProvideNotifier,
		ProvideJournal,
		ProvideQuantCalculator,

		// Use cases
		ProvideResolver,
		ProvideExecutor,

		// HTTP boundary
		ProvideWebhookHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
