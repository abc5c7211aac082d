package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/andkapach/amora/internal/config"
	authsvc "github.com/andkapach/amora/internal/services/auth"
	chatsvc "github.com/andkapach/amora/internal/services/chat"
	discoverysvc "github.com/andkapach/amora/internal/services/discovery"
	geosvc "github.com/andkapach/amora/internal/services/geo"
	giftsvc "github.com/andkapach/amora/internal/services/gifts"
	matchsvc "github.com/andkapach/amora/internal/services/matches"
	mediasvc "github.com/andkapach/amora/internal/services/media"
	profilesvc "github.com/andkapach/amora/internal/services/profiles"
	purchasesvc "github.com/andkapach/amora/internal/services/purchases"
	"github.com/andkapach/amora/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService     *authsvc.Service
	ProfileService  *profilesvc.Service
	GeoService      *geosvc.Service
	DiscoverService *discoverysvc.Service
	MatchService    *matchsvc.Service
	ChatService     *chatsvc.Service
	GiftService     *giftsvc.Service
	PurchaseService *purchasesvc.Service
	MediaService    *mediasvc.Service
	Logger          *zap.Logger
	Config          config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	meHandler := handlers.NewMeHandler(deps.ProfileService, deps.GeoService, deps.MediaService)
	discoverHandler := handlers.NewDiscoverHandler(deps.DiscoverService)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchService)
	chatHandler := handlers.NewChatHandler(deps.ChatService)
	giftsHandler := handlers.NewGiftsHandler(deps.GiftService)
	purchaseHandler := handlers.NewPurchaseHandler(deps.PurchaseService)
	mediaHandler := handlers.NewMediaHandler(deps.MediaService)
	authMW := AuthMiddleware(deps.AuthService, deps.Logger)

	r.Get("/healthz", healthHandler.Get)

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/code", authHandler.RequestCode)
		r.Post("/verify", authHandler.VerifyCode)
		r.Post("/refresh", authHandler.Refresh)
		r.With(authMW).Post("/logout", authHandler.Logout)
		r.With(authMW).Post("/logout_all", authHandler.LogoutAll)
	})

	r.Route("/v1", func(r chi.Router) {
		r.With(authMW).Get("/me", meHandler.Get)
		r.With(authMW).Put("/me", meHandler.Update)
		r.With(authMW).Post("/location", meHandler.UpdateLocation)
		r.With(authMW).Post("/discover", discoverHandler.Discover)
		r.With(authMW).Post("/likes", matchesHandler.Like)
		r.With(authMW).Get("/matches", matchesHandler.List)
		r.With(authMW).Post("/unmatch", matchesHandler.Unmatch)
		r.With(authMW).Post("/block", matchesHandler.BlockAndUnmatch)
		r.With(authMW).Post("/unblock", meHandler.Unblock)
		r.With(authMW).Get("/conversations", chatHandler.Conversations)
		r.With(authMW).Get("/conversations/{conversationID}/messages", chatHandler.Messages)
		r.With(authMW).Post("/messages", chatHandler.Send)
		r.With(authMW).Get("/gifts", giftsHandler.Catalog)
		r.With(authMW).Post("/gifts/send", giftsHandler.Send)
		r.With(authMW).Get("/gifts/received", giftsHandler.Received)
		r.With(authMW).Post("/purchases", purchaseHandler.Begin)
		r.With(authMW).Post("/purchases/confirm", purchaseHandler.Confirm)
		r.With(authMW).Get("/purchases", purchaseHandler.History)
		r.With(authMW).Post("/media/photo/{slot}", mediaHandler.PhotoUpload)
		r.With(authMW).Delete("/media/photo/{slot}", mediaHandler.PhotoClear)
	})
}
