package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/revbench/revbench/internal/events"
	"github.com/revbench/revbench/internal/hosting"
	"github.com/revbench/revbench/internal/review"
)

// blockingReviewer records review requests and optionally holds them open
// until released, to exercise dedup of in-flight work.
type blockingReviewer struct {
	mu       sync.Mutex
	requests []review.Request
	hold     chan struct{}
	outcome  *review.Outcome
}

func newBlockingReviewer() *blockingReviewer {
	return &blockingReviewer{
		outcome: &review.Outcome{
			Verdict: &review.Verdict{
				TLDR:           "ok",
				RiskAssessment: review.RiskLow,
				ReviewSummary:  "looks fine",
				FinalDecision:  review.DecisionApprove,
			},
			FinalLabel: hosting.LabelReadyForMerge,
		},
	}
}

func (b *blockingReviewer) Review(_ context.Context, req review.Request) (*review.Outcome, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	hold := b.hold
	b.mu.Unlock()

	if hold != nil {
		<-hold
	}
	return b.outcome, nil
}

func (b *blockingReviewer) requestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func (b *blockingReviewer) lastRequest() review.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[len(b.requests)-1]
}

func newTestServer(t *testing.T) (*Server, *blockingReviewer, *hosting.Fake) {
	t.Helper()
	reviewer := newBlockingReviewer()
	fake := hosting.NewFake()
	srv := NewServer(reviewer, fake, events.NewBus())
	srv.Project = "42"
	return srv, reviewer, fake
}

func postWebhook(t *testing.T, handler http.Handler, payload Payload) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// drain waits for background reviews to settle
func drain(t *testing.T, srv *Server) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		srv.mu.Lock()
		n := len(srv.inflight)
		srv.mu.Unlock()
		if n == 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("in-flight reviews never drained")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestWebhookAcceptsMROpened(t *testing.T) {
	srv, reviewer, _ := newTestServer(t)
	handler := srv.Handler()

	rec := postWebhook(t, handler, Payload{
		EventType:    EventMROpened,
		MRID:         7,
		SourceBranch: "feature/x",
		CommitSHA:    "abc123",
	})

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp webhookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "accepted" {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.DeliveryID == "" {
		t.Error("no delivery id assigned")
	}

	drain(t, srv)
	if reviewer.requestCount() != 1 {
		t.Errorf("reviews = %d, want 1", reviewer.requestCount())
	}
	if got := reviewer.lastRequest().MR.IID; got != 7 {
		t.Errorf("reviewed MR = %d", got)
	}
}

func TestWebhookRejectsBadPayloads(t *testing.T) {
	srv, _, _ := newTestServer(t)
	handler := srv.Handler()

	tests := []struct {
		name    string
		payload Payload
	}{
		{"unknown event", Payload{EventType: "mr_closed", MRID: 1, CommitSHA: "a"}},
		{"zero mr id", Payload{EventType: EventMROpened, MRID: 0, CommitSHA: "a"}},
		{"missing sha", Payload{EventType: EventMROpened, MRID: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postWebhook(t, handler, tt.payload)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestWebhookRejectsMalformedJSON(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookDeduplicatesInFlightDeliveries(t *testing.T) {
	srv, reviewer, _ := newTestServer(t)
	handler := srv.Handler()

	reviewer.hold = make(chan struct{})
	payload := Payload{EventType: EventMROpened, MRID: 7, SourceBranch: "f", CommitSHA: "abc"}

	first := postWebhook(t, handler, payload)
	if first.Code != http.StatusAccepted {
		t.Fatalf("first status = %d", first.Code)
	}

	// Same MR and commit while the first review is still running
	second := postWebhook(t, handler, payload)
	var resp webhookResponse
	json.Unmarshal(second.Body.Bytes(), &resp)
	if resp.Status != "duplicate" {
		t.Errorf("second status = %q, want duplicate", resp.Status)
	}

	// A different commit on the same MR is new work, not a duplicate
	third := postWebhook(t, handler, Payload{EventType: EventCommitPushed, MRID: 7, CommitSHA: "def"})
	json.Unmarshal(third.Body.Bytes(), &resp)
	if resp.Status != "accepted" {
		t.Errorf("third status = %q, want accepted", resp.Status)
	}

	close(reviewer.hold)
	drain(t, srv)

	if reviewer.requestCount() != 2 {
		t.Errorf("reviews = %d, want 2 (duplicate dropped)", reviewer.requestCount())
	}
}

func TestWebhookCommitPushedResetsLabelAndCarriesPriorReview(t *testing.T) {
	srv, reviewer, fake := newTestServer(t)
	handler := srv.Handler()

	// First cycle on mr_opened
	postWebhook(t, handler, Payload{EventType: EventMROpened, MRID: 3, SourceBranch: "f", CommitSHA: "c1"})
	drain(t, srv)

	// New commit triggers a re-review
	postWebhook(t, handler, Payload{EventType: EventCommitPushed, MRID: 3, CommitSHA: "c2"})
	drain(t, srv)

	if reviewer.requestCount() != 2 {
		t.Fatalf("reviews = %d", reviewer.requestCount())
	}

	second := reviewer.lastRequest()
	if second.PriorReview != "looks fine" {
		t.Errorf("prior review = %q, want the first cycle's summary", second.PriorReview)
	}

	// The reset to needs-review happened on the hosting side
	history := fake.Labels["42!3"]
	if len(history) == 0 || history[len(history)-1] != hosting.LabelNeedsReview {
		t.Errorf("label history = %v, want trailing needs-review", history)
	}
}

func TestWebhookHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}
