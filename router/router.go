package router

import (
	"database/sql"
	"net/http"

	docHandler "collabdoc/internal/document"
	"collabdoc/internal/document/repository"
	"collabdoc/internal/document/service"
	"collabdoc/middleware"
	"collabdoc/socket"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Setup(db *sql.DB, hub *socket.Hub, jwtSecret string) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.AuthMiddleware(jwtSecret)

	// WebSocket
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := middleware.IdentityFrom(r.Context())
		socket.ServeWs(hub, w, r, *identity)
	})
	mux.Handle("/ws", auth(wsHandler))

	// REST API
	docRepo := repository.NewDocumentRepository(db)
	docService := service.NewDocumentService(docRepo)
	handler := docHandler.NewDocumentHandler(docService)

	mux.Handle("/api/documents/create", auth(http.HandlerFunc(handler.CreateDocument)))
	mux.Handle("/api/documents", auth(http.HandlerFunc(handler.GetDocuments)))
	mux.Handle("/api/documents/comments", auth(http.HandlerFunc(handler.GetComments)))
	mux.Handle("/api/documents/comments/resolve", auth(http.HandlerFunc(handler.ResolveComment)))

	mux.Handle("/metrics", promhttp.Handler())

	return middleware.CORSMiddleware(mux)
}
