package bot

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/profile-sales-bot/internal/storage/repository"
)

// newServiceRouter собирает служебные маршруты: метрики и проверку
// готовности. Пользовательского HTTP-интерфейса у бота нет.
func newServiceRouter(db *repository.Storage) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := repository.CheckDatabaseReady(db); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, req, map[string]string{"status": "unavailable"})
			return
		}
		render.JSON(w, req, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
