package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docuforge/docuforge-bridge/internal/assembly"
	"github.com/docuforge/docuforge-bridge/internal/history"
	"github.com/docuforge/docuforge-bridge/internal/invoke"
	"github.com/docuforge/docuforge-bridge/internal/stages"
)

type fakeRanker struct {
	videos []stages.RankVideo
	err    error
	got    *stages.RankRequest
}

func (f *fakeRanker) Rank(ctx context.Context, req stages.RankRequest) ([]stages.RankVideo, error) {
	f.got = &req
	return f.videos, f.err
}

type fakeSynthesizer struct {
	artifact *assembly.VoiceoverArtifact
	err      error
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, req stages.VoiceoverRequest) (*assembly.VoiceoverArtifact, error) {
	return f.artifact, f.err
}

type fakeAssembler struct {
	result *assembly.AssemblyResult
	err    error
	got    *assembly.AssemblyRequest
}

func (f *fakeAssembler) Assemble(ctx context.Context, req assembly.AssemblyRequest) (*assembly.AssemblyResult, error) {
	f.got = &req
	return f.result, f.err
}

// fakeRepo is an in-memory history.Repository.
type fakeRepo struct {
	mu     sync.Mutex
	jobs   map[string]*history.StageJob
	config map[string]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		jobs:   make(map[string]*history.StageJob),
		config: map[string]string{"auth_token": "test-token"},
	}
}

func (f *fakeRepo) CreateJob(ctx context.Context, job *history.StageJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *job
	f.jobs[job.ID] = &copied
	return nil
}

func (f *fakeRepo) FinishJob(ctx context.Context, id, status, errorMsg string, duration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[id]; ok {
		j.Status = status
		j.Error = errorMsg
		j.DurationMs = duration.Milliseconds()
	}
	return nil
}

func (f *fakeRepo) GetJob(ctx context.Context, id string) (*history.StageJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[id], nil
}

func (f *fakeRepo) ListJobs(ctx context.Context, limit int) ([]*history.StageJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var jobs []*history.StageJob
	for _, j := range f.jobs {
		jobs = append(jobs, j)
		if len(jobs) == limit {
			break
		}
	}
	return jobs, nil
}

func (f *fakeRepo) GetConfig(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.config[key], nil
}

func (f *fakeRepo) SetConfig(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.config[key] = value
	return nil
}

func (f *fakeRepo) jobsByStage(stage string) []*history.StageJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*history.StageJob
	for _, j := range f.jobs {
		if j.Stage == stage {
			out = append(out, j)
		}
	}
	return out
}

func testRouter(t *testing.T, cfg RouterConfig) http.Handler {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Repo == nil {
		cfg.Repo = newFakeRepo()
	}
	if cfg.StartTime.IsZero() {
		cfg.StartTime = time.Now()
	}
	return NewRouter(cfg)
}

func authedRequest(method, path, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer test-token")
	return req
}

func TestHealth_NoAuthRequired(t *testing.T) {
	router := testRouter(t, RouterConfig{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("Status = %q, want ok", resp.Status)
	}
	if resp.Message == "" {
		t.Error("Message is empty")
	}
}

func TestRank_SingleObjectNormalized(t *testing.T) {
	score := 87.5
	ranker := &fakeRanker{videos: []stages.RankVideo{
		{ThumbnailURL: "http://example.com/t.jpg", SceneText: "ocean", RelevanceScore: &score},
	}}
	router := testRouter(t, RouterConfig{Ranker: ranker})

	body := `{"thumbnailUrl":"http://example.com/t.jpg","sceneText":"ocean"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/rank", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(ranker.got.Videos) != 1 {
		t.Fatalf("ranker saw %d videos, want 1", len(ranker.got.Videos))
	}

	var ranked []stages.RankVideo
	if err := json.Unmarshal(rec.Body.Bytes(), &ranked); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(ranked) != 1 || ranked[0].RelevanceScore == nil || *ranked[0].RelevanceScore != 87.5 {
		t.Errorf("ranked = %+v", ranked)
	}
}

func TestRank_UnknownFieldRejected(t *testing.T) {
	router := testRouter(t, RouterConfig{Ranker: &fakeRanker{}})

	body := `{"thumbnailUrl":"x","sceneText":"y","bogus":true}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/rank", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRank_NotConfigured(t *testing.T) {
	ranker := &fakeRanker{err: stages.ErrRankerNotConfigured}
	router := testRouter(t, RouterConfig{Ranker: ranker})

	body := `[{"thumbnailUrl":"x","sceneText":"y"}]`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/rank", body))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestVoiceover_ReturnsArtifact(t *testing.T) {
	synth := &fakeSynthesizer{artifact: &assembly.VoiceoverArtifact{
		ProjectID: "p1",
		Path:      "/tmp/docuforge/p1/p1_voiceover.wav",
		Status:    assembly.VoiceoverGenerated,
	}}
	router := testRouter(t, RouterConfig{Synthesizer: synth})

	body := `{"projectId":"p1","scenes":[{"sceneId":1,"sceneText":"The ocean rises."}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/voiceover", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var artifact assembly.VoiceoverArtifact
	if err := json.Unmarshal(rec.Body.Bytes(), &artifact); err != nil {
		t.Fatal(err)
	}
	if artifact.Status != assembly.VoiceoverGenerated {
		t.Errorf("Status = %q", artifact.Status)
	}
}

func TestVoiceover_MissingProjectID(t *testing.T) {
	router := testRouter(t, RouterConfig{Synthesizer: &fakeSynthesizer{}})

	body := `{"scenes":[{"sceneText":"x"}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/voiceover", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAssemble_Success(t *testing.T) {
	asm := &fakeAssembler{result: &assembly.AssemblyResult{
		ProjectID:  "p1",
		OutputPath: "/tmp/docuforge/p1/p1_final.mp4",
		Duration:   42.5,
		Resolution: "1920x1080",
		ClipCount:  3,
		Status:     assembly.StatusCompleted,
	}}
	repo := newFakeRepo()
	router := testRouter(t, RouterConfig{Assembler: asm, Repo: repo})

	body := `{"projectId":"p1","scenes":[{"sceneId":1},{"sceneId":2},{"sceneId":3}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/assemble", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result assembly.AssemblyResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Status != assembly.StatusCompleted || result.ClipCount != 3 {
		t.Errorf("result = %+v", result)
	}

	jobs := repo.jobsByStage(history.StageAssemble)
	if len(jobs) != 1 {
		t.Fatalf("recorded %d assemble jobs, want 1", len(jobs))
	}
	if jobs[0].Status != history.StatusCompleted {
		t.Errorf("job status = %q, want completed", jobs[0].Status)
	}
	if jobs[0].ProjectID != "p1" {
		t.Errorf("job project = %q, want p1", jobs[0].ProjectID)
	}
}

func TestAssemble_EmptyScenesRejected(t *testing.T) {
	asm := &fakeAssembler{err: assembly.ErrNoScenes}
	router := testRouter(t, RouterConfig{Assembler: asm})

	body := `{"projectId":"p1","scenes":[]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/assemble", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAssemble_ToolTimeoutMapsTo504(t *testing.T) {
	asm := &fakeAssembler{err: &invoke.ToolTimeout{Tool: "ffmpeg", After: 600 * time.Second}}
	repo := newFakeRepo()
	router := testRouter(t, RouterConfig{Assembler: asm, Repo: repo})

	body := `{"projectId":"p1","scenes":[{"sceneId":1}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/assemble", body))

	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "STAGE_TIMEOUT" {
		t.Errorf("Code = %q", resp.Code)
	}

	jobs := repo.jobsByStage(history.StageAssemble)
	if len(jobs) != 1 || jobs[0].Status != history.StatusTimeout {
		t.Errorf("jobs = %+v, want one timeout job", jobs)
	}
}

func TestAssemble_ToolFailureCarriesStderr(t *testing.T) {
	asm := &fakeAssembler{err: &invoke.ToolFailure{
		Tool:     "ffmpeg",
		ExitCode: 1,
		Stderr:   "Unknown encoder 'libx264'",
	}}
	router := testRouter(t, RouterConfig{Assembler: asm})

	body := `{"projectId":"p1","scenes":[{"sceneId":1}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/assemble", body))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "STAGE_FAILED" {
		t.Errorf("Code = %q", resp.Code)
	}
	if !strings.Contains(resp.Stderr, "libx264") {
		t.Errorf("Stderr = %q, want encoder message", resp.Stderr)
	}
}

func TestAssemble_UnknownFieldRejected(t *testing.T) {
	router := testRouter(t, RouterConfig{Assembler: &fakeAssembler{}})

	body := `{"projectId":"p1","scenes":[],"extra":1}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/assemble", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestJobs_ListAndGet(t *testing.T) {
	repo := newFakeRepo()
	job := history.NewJob("p1", history.StageRank)
	if err := repo.CreateJob(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	router := testRouter(t, RouterConfig{Repo: repo})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/jobs", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list JobsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Jobs) != 1 {
		t.Fatalf("len(jobs) = %d, want 1", len(list.Jobs))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/jobs/"+job.ID, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/jobs/missing", ""))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing job status = %d, want 404", rec.Code)
	}
}
