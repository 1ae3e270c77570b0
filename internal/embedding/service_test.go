package embedding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/DreamCats/medindex/internal/config"
)

type step struct {
	values []float64
	err    error
}

type fakeProvider struct {
	steps []step
	calls []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) EmbedContent(_ context.Context, text string) ([]float64, error) {
	f.calls = append(f.calls, text)
	if len(f.steps) == 0 {
		return []float64{float64(len(text)), 1}, nil
	}
	s := f.steps[0]
	f.steps = f.steps[1:]
	return s.values, s.err
}

type fakeSleeper struct {
	waits []time.Duration
}

func (f *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	f.waits = append(f.waits, d)
	return ctx.Err()
}

func newTestService(p Provider, sl Sleeper, dims int) *Service {
	nop := zerolog.Nop()
	return New(p, Options{
		Dimensions: dims,
		Policy:     DefaultPolicy,
		PaceEvery:  10,
		PaceDelay:  100 * time.Millisecond,
		Sleeper:    sl,
		Logger:     &nop,
	})
}

var errRateLimited = &APIError{StatusCode: 429, Body: `{"error":{"status":"RESOURCE_EXHAUSTED"}}`}

func TestEmbedRecoversFromRateLimit(t *testing.T) {
	p := &fakeProvider{steps: []step{
		{err: errRateLimited},
		{err: errRateLimited},
		{values: []float64{0.25, -0.5}},
	}}
	sl := &fakeSleeper{}
	svc := newTestService(p, sl, 2)

	vec, err := svc.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if !reflect.DeepEqual(vec, []float32{0.25, -0.5}) {
		t.Errorf("Embed() = %v", vec)
	}
	if len(p.calls) != 3 {
		t.Errorf("provider called %d times, want 3", len(p.calls))
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if !reflect.DeepEqual(sl.waits, want) {
		t.Errorf("waits = %v, want %v", sl.waits, want)
	}
}

func TestEmbedQuotaWindowFloor(t *testing.T) {
	quota := errors.New("429 Quota exceeded for metric embed_content_requests_per_minute")
	p := &fakeProvider{steps: []step{{err: quota}, {err: quota}, {values: []float64{1}}}}
	sl := &fakeSleeper{}
	svc := newTestService(p, sl, 1)

	if _, err := svc.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	want := []time.Duration{30 * time.Second, 30 * time.Second}
	if !reflect.DeepEqual(sl.waits, want) {
		t.Errorf("waits = %v, want %v", sl.waits, want)
	}
}

func TestEmbedExhausted(t *testing.T) {
	steps := make([]step, 10)
	for i := range steps {
		steps[i] = step{err: errRateLimited}
	}
	p := &fakeProvider{steps: steps}
	sl := &fakeSleeper{}
	svc := newTestService(p, sl, 2)

	_, err := svc.Embed(context.Background(), "x")
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("Embed() error = %v, want *Failure", err)
	}
	if f.Kind != FailureExhausted || f.Attempts != 10 {
		t.Errorf("Failure = %+v", f)
	}
	if len(p.calls) != 10 {
		t.Errorf("provider called %d times, want 10", len(p.calls))
	}
	if len(sl.waits) != 9 {
		t.Fatalf("slept %d times, want 9", len(sl.waits))
	}
	if sl.waits[8] != 512*time.Second {
		t.Errorf("last wait = %v, want 512s", sl.waits[8])
	}
}

func TestEmbedPermanentFailures(t *testing.T) {
	tests := []struct {
		name    string
		step    step
		wantErr error
	}{
		{"server error", step{err: &APIError{StatusCode: 500, Body: "boom"}}, nil},
		{"empty vector", step{values: []float64{}}, ErrEmptyEmbedding},
		{"missing vector", step{values: nil}, ErrEmptyEmbedding},
		{"wrong length", step{values: []float64{1, 2, 3}}, ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{steps: []step{tt.step}}
			sl := &fakeSleeper{}
			svc := newTestService(p, sl, 2)

			vec, err := svc.Embed(context.Background(), "x")
			if vec != nil {
				t.Errorf("Embed() returned vector %v on failure", vec)
			}
			var f *Failure
			if !errors.As(err, &f) || f.Kind != FailurePermanent || f.Attempts != 1 {
				t.Fatalf("Embed() error = %v, want permanent failure after 1 attempt", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Embed() error = %v, want %v", err, tt.wantErr)
			}
			if len(sl.waits) != 0 {
				t.Errorf("slept %v on a permanent failure", sl.waits)
			}
		})
	}
}

func TestEmbedEmptyText(t *testing.T) {
	p := &fakeProvider{}
	svc := newTestService(p, &fakeSleeper{}, 0)
	if _, err := svc.Embed(context.Background(), "  "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("Embed(blank) error = %v", err)
	}
	if len(p.calls) != 0 {
		t.Error("provider called for blank text")
	}
}

func TestEmbedCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &fakeProvider{steps: []step{{err: errRateLimited}}}
	svc := newTestService(p, &fakeSleeper{}, 2)

	_, err := svc.Embed(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Embed() error = %v, want context.Canceled", err)
	}
}

func TestEmbedBatchOrderAndPacing(t *testing.T) {
	p := &fakeProvider{}
	sl := &fakeSleeper{}
	svc := newTestService(p, sl, 2)

	texts := make([]string, 25)
	for i := range texts {
		texts[i] = strings.Repeat("a", i+1)
	}

	vecs, err := svc.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("EmbedBatch() returned %d vectors, want %d", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if v[0] != float32(i+1) {
			t.Errorf("vecs[%d][0] = %v, want %d", i, v[0], i+1)
		}
	}
	if !reflect.DeepEqual(p.calls, texts) {
		t.Error("texts were not embedded in order")
	}
	// Pauses before items 10 and 20.
	want := []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}
	if !reflect.DeepEqual(sl.waits, want) {
		t.Errorf("waits = %v, want %v", sl.waits, want)
	}
}

func TestEmbedBatchAbortsOnFailure(t *testing.T) {
	p := &fakeProvider{steps: []step{
		{values: []float64{1, 1}},
		{err: &APIError{StatusCode: 400, Body: "bad request"}},
		{values: []float64{1, 1}},
	}}
	svc := newTestService(p, &fakeSleeper{}, 2)

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err == nil {
		t.Fatal("EmbedBatch() expected error")
	}
	if vecs != nil {
		t.Errorf("EmbedBatch() returned partial result %v", vecs)
	}
	var f *Failure
	if !errors.As(err, &f) {
		t.Errorf("EmbedBatch() error %v does not wrap *Failure", err)
	}
	if len(p.calls) != 2 {
		t.Errorf("provider called %d times, want 2", len(p.calls))
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Class
	}{
		{errors.New("googleapi: Error 429: Resource has been exhausted"), ClassThrottled},
		{errors.New("RESOURCE_EXHAUSTED"), ClassThrottled},
		{errors.New("You exceeded your current quota"), ClassThrottled},
		{errors.New("quota exceeded: requests_per_minute"), ClassQuotaWindow},
		{&APIError{StatusCode: 429, Body: "slow down"}, ClassThrottled},
		{&APIError{StatusCode: 503, Body: "unavailable"}, ClassPermanent},
		{errors.New("invalid argument"), ClassPermanent},
		{fmt.Errorf("send: %w", context.DeadlineExceeded), ClassPermanent},
	}

	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.RetryConfig{MaxAttempts: 3, BaseDelay: time.Second})
	if p.MaxAttempts != 3 || p.BaseDelay != time.Second || p.Multiplier != 2 || p.QuotaFloor != 30*time.Second {
		t.Errorf("PolicyFromConfig() = %+v", p)
	}
	if d := p.Delay(2, ClassThrottled); d != 4*time.Second {
		t.Errorf("Delay(2) = %v, want 4s", d)
	}
	if d := p.Delay(5, ClassQuotaWindow); d != 32*time.Second {
		t.Errorf("Delay(5, quota) = %v, want 32s", d)
	}
}

func TestGoogleClient(t *testing.T) {
	var gotPath, gotKey, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		if strings.Contains(gotBody, "limit me") {
			w.WriteHeader(http.StatusTooManyRequests)
			io.WriteString(w, `{"error":{"message":"Resource has been exhausted"}}`)
			return
		}
		io.WriteString(w, `{"embedding":{"values":[0.1,0.2,0.3]}}`)
	}))
	defer srv.Close()

	client, err := NewGoogleClient(&config.EmbeddingConfig{
		APIKey:   "secret",
		Endpoint: srv.URL,
		Model:    "text-embedding-004",
	})
	if err != nil {
		t.Fatal(err)
	}

	vals, err := client.EmbedContent(context.Background(), "sepsis")
	if err != nil {
		t.Fatalf("EmbedContent() error = %v", err)
	}
	if !reflect.DeepEqual(vals, []float64{0.1, 0.2, 0.3}) {
		t.Errorf("EmbedContent() = %v", vals)
	}
	if gotPath != "/models/text-embedding-004:embedContent" || gotKey != "secret" {
		t.Errorf("request path=%q key=%q", gotPath, gotKey)
	}
	if !strings.Contains(gotBody, `"model":"models/text-embedding-004"`) || !strings.Contains(gotBody, `"text":"sepsis"`) {
		t.Errorf("request body = %s", gotBody)
	}

	_, err = client.EmbedContent(context.Background(), "limit me")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 429 {
		t.Fatalf("EmbedContent() error = %v, want 429 APIError", err)
	}
	if Classify(err) != ClassThrottled {
		t.Errorf("Classify() = %v, want throttled", Classify(err))
	}
}

func TestNewServiceProviders(t *testing.T) {
	if _, err := NewService(&config.EmbeddingConfig{Provider: "cohere", APIKey: "k"}); err == nil {
		t.Error("NewService(cohere) expected error")
	}
	if _, err := NewService(&config.EmbeddingConfig{Provider: "google"}); err == nil {
		t.Error("NewService(google) without key expected error")
	}
	svc, err := NewService(&config.EmbeddingConfig{Provider: "google", APIKey: "k", Dimensions: 768})
	if err != nil {
		t.Fatalf("NewService(google) error = %v", err)
	}
	if svc.Dimensions() != 768 {
		t.Errorf("Dimensions() = %d", svc.Dimensions())
	}

	svc, err = NewService(&config.EmbeddingConfig{Provider: "openai", APIKey: "k", Model: "text-embedding-3-small", Dimensions: 1536})
	if err != nil {
		t.Fatalf("NewService(openai) error = %v", err)
	}
	if svc.Dimensions() != 1536 {
		t.Errorf("openai Dimensions() = %d, want 1536", svc.Dimensions())
	}
}
