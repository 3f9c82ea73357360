package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// Handler processes inbound messages after the transport layer has unpacked
// them. Calls may block on model and storage round-trips; the server invokes
// them off the request goroutine so the channel's delivery timeout is never
// at their mercy.
type Handler interface {
	HandleImage(ctx context.Context, submitterID string, imageData []byte, contentType string, locale string)
	HandleText(ctx context.Context, submitterID string, text string)
}

// MediaFetcher downloads message media by URL.
type MediaFetcher interface {
	Fetch(ctx context.Context, url string) (data []byte, contentType string, err error)
}

// Server terminates the messaging-channel webhook.
type Server struct {
	handler     Handler
	media       MediaFetcher
	verifyToken string
	mux         *http.ServeMux
	dispatch    *dispatcher
}

// NewServer creates a new Server with default mux
func NewServer(handler Handler, media MediaFetcher, verifyToken string) *Server {
	return NewServerWithMux(handler, media, verifyToken, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(handler Handler, media MediaFetcher, verifyToken string, mux *http.ServeMux) *Server {
	s := &Server{
		handler:     handler,
		media:       media,
		verifyToken: verifyToken,
		mux:         mux,
		dispatch:    newDispatcher(),
	}
	s.registerRoutes()
	return s
}

// inboundPayload is the webhook body for an incoming WhatsApp message.
type inboundPayload struct {
	Message struct {
		From string `json:"from"`
		Type string `json:"type"`
		Text struct {
			Body string `json:"body"`
		} `json:"text"`
		Kapso struct {
			MediaURL    string `json:"media_url"`
			ContentType string `json:"content_type"`
		} `json:"kapso"`
	} `json:"message"`
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /webhook", s.handleVerify)
	s.mux.HandleFunc("POST /webhook", s.handleInbound)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleVerify answers the channel's subscription handshake: echo the
// challenge when the token matches.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if s.verifyToken == "" || token != s.verifyToken {
		slog.Warn("Webhook verification failed", "remote", r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	w.Write([]byte(challenge))
}

// handleInbound acknowledges the delivery immediately and hands the message
// to the submitter's ordered queue. The channel retries on slow responses, so
// nothing that can block belongs on the request goroutine — but a submitter's
// messages must still be processed in arrival order, including the media
// download, so enqueueing (not processing) is all that happens here.
func (s *Server) handleInbound(w http.ResponseWriter, r *http.Request) {
	var payload inboundPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		slog.Warn("Unparseable webhook body", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	msg := payload.Message
	if msg.From == "" {
		// Status callbacks and other non-message events share the endpoint.
		w.WriteHeader(http.StatusOK)
		return
	}

	switch msg.Type {
	case "image", "document":
		if msg.Kapso.MediaURL == "" {
			slog.Warn("Media message without a media URL", "from", msg.From, "type", msg.Type)
			break
		}
		mediaURL, contentType := msg.Kapso.MediaURL, msg.Kapso.ContentType
		s.dispatch.enqueue(msg.From, func() {
			s.processMedia(msg.From, mediaURL, contentType)
		})

	case "text":
		body := msg.Text.Body
		s.dispatch.enqueue(msg.From, func() {
			s.handler.HandleText(context.Background(), msg.From, body)
		})

	default:
		slog.Info("Ignoring unsupported message type", "from", msg.From, "type", msg.Type)
	}

	w.WriteHeader(http.StatusOK)
}

// processMedia runs inside the submitter's ordered worker: the download
// happens in queue position, so a later text cannot jump ahead of it.
func (s *Server) processMedia(from string, mediaURL string, contentType string) {
	ctx := context.Background()

	data, fetchedType, err := s.media.Fetch(ctx, mediaURL)
	if err != nil {
		slog.Error("Failed to download media", "from", from, "error", err)
		return
	}
	if contentType == "" {
		contentType = fetchedType
	}

	s.handler.HandleImage(ctx, from, data, contentType, "")
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting webhook server", "address", addr)
	return http.ListenAndServe(addr, s.mux)
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
