package handler

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"clouddrive/internal/auth"
	"clouddrive/internal/domain"
	"clouddrive/internal/logger"
	"clouddrive/internal/service"
)

const maxAgentLength = 500

type RouterConfig struct {
	AllowRegistration bool
	AllowedOrigins    []string
	RequestTimeout    time.Duration
}

// Services - зависимости HTTP-слоя
type Services struct {
	Files    *service.FileService
	Folders  *service.FolderService
	Quota    *service.StorageQuotaService
	Shares   *service.ShareService
	Accounts *service.AccountService
	Activity *service.ActivityService
}

func NewRouter(cfg RouterConfig, svc Services, tokens *auth.TokenManager, log zerolog.Logger) http.Handler {
	fileHandler := NewFileHandler(svc.Files)
	folderHandler := NewFolderHandler(svc.Folders)
	quotaHandler := NewStorageQuotaHandler(svc.Quota)
	shareHandler := NewShareHandler(svc.Shares)
	accountHandler := NewAccountHandler(svc.Accounts, tokens)
	adminHandler := NewAdminHandler(svc.Accounts, svc.Quota, svc.Activity)
	publicHandler := NewPublicHandler(svc.Files)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(logger.Component(log, "http")))
	r.Use(hlog.RequestIDHandler("req_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(requestMeta)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "Content-Length", "Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if cfg.AllowRegistration {
				r.Post("/register", accountHandler.Register)
			}
			r.Post("/login", accountHandler.Login)
		})

		r.Route("/public/{token}", func(r chi.Router) {
			r.Get("/", publicHandler.GetInfo)
			r.Get("/content", publicHandler.View)
			r.Head("/content", publicHandler.View)
			r.Get("/download", publicHandler.Download)
		})

		r.Group(func(r chi.Router) {
			r.Use(tokens.Authenticate(svc.Accounts))

			r.Get("/me", accountHandler.Me)
			r.Put("/me", accountHandler.UpdateSettings)
			r.Get("/quota", quotaHandler.GetQuotaInfo)
			r.Get("/search", folderHandler.Search)

			r.Post("/files", fileHandler.UploadFile)
			r.Post("/files/batch", fileHandler.UploadFiles)
			r.Route("/files/{id}", func(r chi.Router) {
				r.Get("/", fileHandler.GetFile)
				r.Delete("/", fileHandler.DeleteFile)
				r.Get("/content", fileHandler.ViewFile)
				r.Head("/content", fileHandler.ViewFile)
				r.Get("/download", fileHandler.DownloadFile)
				r.Put("/rename", fileHandler.RenameFile)
				r.Put("/move", fileHandler.MoveFile)
				r.Post("/visibility", fileHandler.ToggleVisibility)
				r.Get("/shares", shareHandler.ListFileShares)
				r.Post("/shares", shareHandler.CreateShare)
			})

			r.Get("/folders", folderHandler.GetFolderContent)
			r.Post("/folders", folderHandler.CreateFolder)
			r.Route("/folders/{id}", func(r chi.Router) {
				r.Get("/", folderHandler.GetFolderContent)
				r.Delete("/", folderHandler.DeleteFolder)
				r.Get("/breadcrumbs", folderHandler.GetBreadcrumbs)
				r.Put("/rename", folderHandler.RenameFolder)
				r.Put("/move", folderHandler.MoveFolder)
			})

			r.Route("/shares", func(r chi.Router) {
				r.Get("/shared-with-me", shareHandler.GetSharedWithMe)
				r.Delete("/{id}", shareHandler.RevokeShare)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireAdmin)

				r.Get("/accounts", adminHandler.ListAccounts)
				r.Post("/accounts", adminHandler.CreateAccount)
				r.Put("/accounts/{id}", adminHandler.UpdateAccount)
				r.Delete("/accounts/{id}", adminHandler.DeleteAccount)
				r.Get("/accounts/{id}/files", adminHandler.AccountStorage)
				r.Post("/accounts/{id}/toggle", adminHandler.ToggleStatus)
				r.Post("/accounts/{id}/reset-password", adminHandler.ResetPassword)
				r.Put("/accounts/{id}/quota", adminHandler.UpdateQuotaLimit)
				r.Post("/accounts/{id}/reconcile", adminHandler.Reconcile)
				r.Get("/activity", adminHandler.ListActivity)
			})
		})
	})

	return r
}

// requestMeta кладет адрес и user agent клиента в контекст для журнала действий
func requestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}

		agent := r.UserAgent()
		if len(agent) > maxAgentLength {
			agent = agent[:maxAgentLength]
		}

		ctx := domain.WithRequestMeta(r.Context(), domain.RequestMeta{IP: ip, Agent: agent})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
