package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/savelyevam/vidhub/internal/config"
	"github.com/savelyevam/vidhub/internal/service"
	"github.com/savelyevam/vidhub/internal/transport/http/handlers"
	"github.com/savelyevam/vidhub/internal/transport/http/middleware"
)

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
// Все маршруты аккаунтов монтируются под cfg.HTTP.BasePath.
func NewRouter(svc *service.Service, cfg *config.Config, logger *slog.Logger) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),       // безопасно ловим паники
		middleware.RequestID(),     // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(logger), // кладём request-scoped логгер в контекст и логируем
	)
	if len(cfg.HTTP.CORSOrigins) > 0 {
		root.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.HTTP.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			AllowCredentials: true, // auth-cookie ходят кросс-доменно
			MaxAge:           300,
		}))
	}
	if cfg.Timeouts.Service > 0 {
		root.Use(middleware.Timeout(cfg.Timeouts.Service)) // общий дедлайн запроса
	}

	// Пробы живости вне базового префикса.
	root.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	root.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	h := handlers.New(svc, cfg)

	sub := chi.NewRouter()
	registerRoutes(sub, h, svc)

	basePath := cfg.HTTP.BasePath
	if basePath == "" {
		basePath = "/"
	}
	root.Mount(basePath, sub)

	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, svc *service.Service) {
	// открытые маршруты
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/refresh-access-token", h.Refresh)

	// маршруты за access-токеном
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.Authenticate(svc))

		pr.Post("/logout", h.Logout)
		pr.Put("/change-password", h.ChangePassword)
		pr.Get("/", h.CurrentUser)
		pr.Put("/update-user-info", h.UpdateInfo)
		pr.Put("/update-avatar", h.UpdateAvatar)
		pr.Put("/update-cover-image", h.UpdateCoverImage)
		pr.Get("/history", h.History)
		// последним: шаблон {channelUsername} не должен перехватывать
		// статические маршруты выше.
		pr.Get("/{channelUsername}", h.Channel)
	})
}
