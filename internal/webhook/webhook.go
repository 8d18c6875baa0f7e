// Package webhook runs the live review bot: an HTTP server that receives
// merge request events and replays the same review cycle the benchmark
// uses, against real MRs.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/revbench/revbench/internal/events"
	"github.com/revbench/revbench/internal/hosting"
	"github.com/revbench/revbench/internal/review"
)

// Event types accepted on the webhook endpoint
const (
	EventMROpened     = "mr_opened"
	EventCommitPushed = "commit_pushed"
)

// Payload is the inbound webhook body
type Payload struct {
	EventType    string `json:"event_type"`
	Project      string `json:"project,omitempty"`
	MRID         int    `json:"mr_id"`
	SourceBranch string `json:"source_branch,omitempty"`
	CommitSHA    string `json:"commit_sha"`
}

// Validate checks the payload before any work is scheduled
func (p *Payload) Validate() error {
	switch p.EventType {
	case EventMROpened, EventCommitPushed:
	default:
		return fmt.Errorf("unknown event_type %q", p.EventType)
	}
	if p.MRID <= 0 {
		return fmt.Errorf("mr_id must be positive, got %d", p.MRID)
	}
	if p.CommitSHA == "" {
		return fmt.Errorf("commit_sha must not be empty")
	}
	return nil
}

// Reviewer is the slice of the review engine the server drives
type Reviewer interface {
	Review(ctx context.Context, req review.Request) (*review.Outcome, error)
}

// Server is the webhook-driven review bot. One review runs at a time per
// MR; identical (mr_id, commit_sha) deliveries are dropped while the first
// is still in flight.
type Server struct {
	reviewer Reviewer
	host     hosting.Client
	bus      *events.Bus

	// Project is the hosting project reviews run against when the
	// payload does not name one.
	Project string

	// CTOInstructions is the standing review brief for live MRs
	CTOInstructions string

	// ReviewTimeout bounds one review cycle
	ReviewTimeout time.Duration

	mu       sync.Mutex
	inflight map[string]bool
	mrLocks  map[string]*sync.Mutex
	prior    map[string]string // last review summary per project!mr
	wg       sync.WaitGroup

	httpServer *http.Server
}

// NewServer wires the bot
func NewServer(reviewer Reviewer, host hosting.Client, bus *events.Bus) *Server {
	return &Server{
		reviewer:      reviewer,
		host:          host,
		bus:           bus,
		ReviewTimeout: 10 * time.Minute,
		inflight:      make(map[string]bool),
		mrLocks:       make(map[string]*sync.Mutex),
		prior:         make(map[string]string),
	}
}

// Handler returns the HTTP handler tree
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// ListenAndServe runs the server until the context is canceled, then drains
// in-flight reviews within the shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-shutdownCtx.Done():
		return fmt.Errorf("shutdown timed out with reviews in flight")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type webhookResponse struct {
	DeliveryID string `json:"delivery_id"`
	Status     string `json:"status"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	deliveryID := uuid.New().String()

	var payload Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.reject(w, deliveryID, fmt.Errorf("malformed body: %w", err))
		return
	}
	if err := payload.Validate(); err != nil {
		s.reject(w, deliveryID, err)
		return
	}

	project := payload.Project
	if project == "" {
		project = s.Project
	}
	if project == "" {
		s.reject(w, deliveryID, fmt.Errorf("no project in payload and none configured"))
		return
	}

	s.bus.Emit(events.NewEvent(events.WebhookReceived, "").WithMR(payload.MRID).
		WithPayload(map[string]any{
			"delivery_id": deliveryID,
			"event_type":  payload.EventType,
			"commit_sha":  payload.CommitSHA,
		}))

	key := fmt.Sprintf("%s!%d@%s", project, payload.MRID, payload.CommitSHA)
	s.mu.Lock()
	if s.inflight[key] {
		s.mu.Unlock()
		s.bus.Emit(events.NewEvent(events.WebhookDuplicate, "").WithMR(payload.MRID).
			WithPayload(map[string]any{"delivery_id": deliveryID}))
		s.respond(w, http.StatusAccepted, webhookResponse{DeliveryID: deliveryID, Status: "duplicate"})
		return
	}
	s.inflight[key] = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.process(project, payload, key, deliveryID)

	s.respond(w, http.StatusAccepted, webhookResponse{DeliveryID: deliveryID, Status: "accepted"})
}

func (s *Server) reject(w http.ResponseWriter, deliveryID string, err error) {
	s.bus.Emit(events.NewEvent(events.WebhookRejected, "").
		WithPayload(map[string]any{"delivery_id": deliveryID}).WithError(err))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]string{
		"delivery_id": deliveryID,
		"status":      "rejected",
		"error":       err.Error(),
	})
}

func (s *Server) respond(w http.ResponseWriter, status int, body webhookResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// mrLock returns the mutex serializing reviews of one MR
func (s *Server) mrLock(project string, mrID int) *sync.Mutex {
	key := fmt.Sprintf("%s!%d", project, mrID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mrLocks[key] == nil {
		s.mrLocks[key] = &sync.Mutex{}
	}
	return s.mrLocks[key]
}

// process runs one review cycle in the background
func (s *Server) process(project string, payload Payload, inflightKey, deliveryID string) {
	defer func() {
		s.mu.Lock()
		delete(s.inflight, inflightKey)
		s.mu.Unlock()
		s.wg.Done()
	}()

	lock := s.mrLock(project, payload.MRID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.ReviewTimeout)
	defer cancel()

	mrKey := fmt.Sprintf("%s!%d", project, payload.MRID)
	mr := &hosting.MergeRequest{
		Project:      project,
		IID:          payload.MRID,
		SourceBranch: payload.SourceBranch,
	}

	var priorReview string
	if payload.EventType == EventCommitPushed {
		// A new commit starts a fresh cycle: the label resets and the
		// previous cycle's findings ride along as context.
		if err := s.host.SetLabel(ctx, project, payload.MRID, hosting.LabelNeedsReview); err != nil {
			s.fail(payload.MRID, deliveryID, fmt.Errorf("reset label: %w", err))
			return
		}
		s.mu.Lock()
		priorReview = s.prior[mrKey]
		s.mu.Unlock()
	}
	mr.CurrentLabel = hosting.LabelNeedsReview

	outcome, err := s.reviewer.Review(ctx, review.Request{
		MR:              mr,
		CTOInstructions: s.CTOInstructions,
		PriorReview:     priorReview,
	})
	if err != nil {
		s.fail(payload.MRID, deliveryID, err)
		return
	}

	s.mu.Lock()
	s.prior[mrKey] = outcome.Verdict.ReviewSummary
	s.mu.Unlock()

	s.bus.Emit(events.NewEvent(events.WebhookProcessed, "").WithMR(payload.MRID).
		WithPayload(map[string]any{
			"delivery_id": deliveryID,
			"decision":    string(outcome.Verdict.FinalDecision),
			"label":       string(outcome.FinalLabel),
		}))
}

func (s *Server) fail(mrID int, deliveryID string, err error) {
	s.bus.Emit(events.NewEvent(events.WebhookFailed, "").WithMR(mrID).
		WithPayload(map[string]any{"delivery_id": deliveryID}).WithError(err))
}
