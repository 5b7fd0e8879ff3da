package websocket

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter создает маршрутизатор real-time сервера
func NewRouter(sessions *SessionHandler) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/ws/chats/{chat_id:[0-9]+}", sessions).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
	return r
}
