package router

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"marketplace/internal/controller"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const RequestIdHeader = "X-Request-Id"

// NewRouter wires the API routes. ws serves websocket subscriptions to the
// notification bus.
func NewRouter(c *controller.Controller, ws http.Handler, log logrus.FieldLogger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/ping", c.Ping)

	mux.HandleFunc("POST /api/users", c.NewProfile)
	mux.HandleFunc("GET /api/users", c.ListUsers)
	mux.HandleFunc("PUT /api/users/me", c.UpdateProfile)
	mux.HandleFunc("PUT /api/users/me/image", c.SetProfileImage)
	mux.HandleFunc("GET /api/users/{userId}", c.GetProfile)
	mux.HandleFunc("GET /api/users/{userId}/ledger", c.UserLedger)

	mux.HandleFunc("POST /api/jobs", c.NewJob)
	mux.HandleFunc("GET /api/jobs", c.ListJobs)
	mux.HandleFunc("GET /api/jobs/{jobId}", c.GetJob)
	mux.HandleFunc("PUT /api/jobs/{jobId}/status", c.SetJobStatus)
	mux.HandleFunc("POST /api/jobs/{jobId}/settle", c.SettleJob)
	mux.HandleFunc("POST /api/jobs/{jobId}/bids", c.NewBid)
	mux.HandleFunc("PUT /api/jobs/{jobId}/bids/{bidId}/status", c.SetBidStatus)
	mux.HandleFunc("POST /api/jobs/{jobId}/ratings", c.NewRating)

	mux.HandleFunc("POST /api/assets", c.NewAsset)
	mux.HandleFunc("GET /api/assets", c.ListAssets)

	mux.HandleFunc("POST /api/chats", c.NewMessage)
	mux.HandleFunc("GET /api/chats", c.ListConversations)
	mux.HandleFunc("GET /api/chats/messages", c.Messages)

	if ws != nil {
		mux.Handle("GET /api/ws", ws)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("page not found"))
	})

	cors := http.NewServeMux()
	cors.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Subject-Id, X-Subject-Role, X-Request-Id")
		w.Header().Set("Accept", "*/*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
		} else {
			mux.ServeHTTP(w, r)
		}
	})

	return withRequestLog(cors, log)
}

// withRequestLog tags every request with an id and logs it once served.
func withRequestLog(next http.Handler, log logrus.FieldLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIdHeader)
		if len(id) == 0 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIdHeader, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   time.Since(start),
		}).Debug("request served")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets websocket upgrades through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("router: response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
