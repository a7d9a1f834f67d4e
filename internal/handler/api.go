package handler

import (
	"github.com/macrolog/internal/service"
)

// Services 汇总 handler 依赖的业务服务
type Services struct {
	Accounts    *service.AccountService
	Profiles    *service.ProfileService
	Ledger      *service.LedgerService
	Progress    *service.ProgressService
	Recipes     *service.RecipeService
	Preferences *service.PreferenceService
	AI          *service.AINutritionService
	Barcodes    *service.BarcodeService
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	accounts    *service.AccountService
	profiles    *service.ProfileService
	ledger      *service.LedgerService
	progress    *service.ProgressService
	recipes     *service.RecipeService
	preferences *service.PreferenceService
	ai          *service.AINutritionService
	barcodes    *service.BarcodeService
}

// NewAPI constructs a handler set with shared services.
func NewAPI(s Services) *API {
	return &API{
		accounts:    s.Accounts,
		profiles:    s.Profiles,
		ledger:      s.Ledger,
		progress:    s.Progress,
		recipes:     s.Recipes,
		preferences: s.Preferences,
		ai:          s.AI,
		barcodes:    s.Barcodes,
	}
}
