package conversation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"athena/internal/config"
	"athena/internal/domain/models"
)

type fakeMessages struct {
	mu             sync.Mutex
	all            []models.Message
	listAllCalls   int
	listAfterCalls int
}

func (f *fakeMessages) ListAll(_ context.Context, _ uuid.UUID) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listAllCalls++
	return f.all, nil
}

func (f *fakeMessages) ListAfter(_ context.Context, _ uuid.UUID, afterID int64) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listAfterCalls++
	var out []models.Message
	for _, m := range f.all {
		if m.ID > afterID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeSummaries struct {
	mu      sync.Mutex
	calls   int
	summary string
	upToID  int64
}

func (f *fakeSummaries) SaveSummary(_ context.Context, _ uuid.UUID, summary string, upToID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.summary = summary
	f.upToID = upToID
	return nil
}

type fakeSummarizer struct {
	mu    sync.Mutex
	calls int
	input []models.Message
	out   string
}

func (f *fakeSummarizer) Summarize(_ context.Context, messages []models.Message) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.input = messages
	return f.out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func storedMessages(n int, content string) []models.Message {
	msgs := make([]models.Message, n)
	for i := range msgs {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		msgs[i] = models.Message{
			ID:      int64(i + 1),
			Role:    role,
			Content: fmt.Sprintf("%s %d", content, i+1),
		}
	}
	return msgs
}

func newTestManager(msgs *fakeMessages, summaries *fakeSummaries, sum *fakeSummarizer) *HistoryManager {
	return NewHistoryManager(msgs, summaries, sum, testLogger())
}

func TestPrepareFastPathReturnsHistoryVerbatim(t *testing.T) {
	t.Parallel()

	msgs := &fakeMessages{all: storedMessages(5, "message")}
	summaries := &fakeSummaries{}
	sum := &fakeSummarizer{out: "unused"}
	manager := newTestManager(msgs, summaries, sum)

	conv := &models.Conversation{ID: uuid.New(), TokenCount: 100}

	history, didCompress, err := manager.Prepare(context.Background(), conv, 1000)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if didCompress {
		t.Error("fast path reported compression")
	}
	if len(history) != 5 {
		t.Fatalf("history length = %d, want 5", len(history))
	}
	for i, m := range msgs.all {
		if history[i].Role != m.Role || history[i].Content != m.Content {
			t.Errorf("history[%d] = %+v, want verbatim %+v", i, history[i], m)
		}
	}
	if sum.calls != 0 || summaries.calls != 0 {
		t.Error("fast path must not summarize or write")
	}
}

func TestPrepareExhaustedBudgetDropsHistory(t *testing.T) {
	t.Parallel()

	msgs := &fakeMessages{all: storedMessages(5, "message")}
	manager := newTestManager(msgs, &fakeSummaries{}, &fakeSummarizer{})

	conv := &models.Conversation{ID: uuid.New(), TokenCount: 100}

	history, didCompress, err := manager.Prepare(context.Background(), conv, 0)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if didCompress || len(history) != 0 {
		t.Errorf("Prepare with zero budget = (%v, %v), want empty and no compression", history, didCompress)
	}
	if msgs.listAllCalls != 0 {
		t.Error("no messages should be read when the budget is gone")
	}
}

func TestPrepareReusesCachedSummary(t *testing.T) {
	t.Parallel()

	msgs := &fakeMessages{all: storedMessages(10, "short")}
	summaries := &fakeSummaries{}
	sum := &fakeSummarizer{out: "unused"}
	manager := newTestManager(msgs, summaries, sum)

	stored := "earlier messages covered project kickoff"
	conv := &models.Conversation{
		ID:               uuid.New(),
		TokenCount:       5000,
		Summary:          &stored,
		SummarizedUpToID: 7,
	}

	history, didCompress, err := manager.Prepare(context.Background(), conv, 1000)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if didCompress {
		t.Error("cached summary path reported compression")
	}
	// Synthetic summary message plus the 3 messages after id 7.
	if len(history) != 4 {
		t.Fatalf("history length = %d, want 4", len(history))
	}
	if history[0].Role != models.RoleSystem || !strings.Contains(history[0].Content, stored) {
		t.Errorf("history[0] = %+v, want system message carrying the summary", history[0])
	}
	if history[1].Content != "short 8" {
		t.Errorf("history[1] = %q, want first message after the summary boundary", history[1].Content)
	}
	if summaries.calls != 0 || sum.calls != 0 {
		t.Error("cached summary path must not resummarize")
	}
}

func TestPrepareSummarySizeDoesNotForceRecompression(t *testing.T) {
	t.Parallel()

	msgs := &fakeMessages{all: storedMessages(10, "short")}
	summaries := &fakeSummaries{}
	sum := &fakeSummarizer{out: "unused"}
	manager := newTestManager(msgs, summaries, sum)

	// The stored summary alone is several times the recompress
	// threshold; only the messages after it count against it.
	stored := strings.Repeat("kickoff planning notes decisions ", 50)
	conv := &models.Conversation{
		ID:               uuid.New(),
		TokenCount:       5000,
		Summary:          &stored,
		SummarizedUpToID: 7,
	}

	history, didCompress, err := manager.Prepare(context.Background(), conv, 100)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if didCompress {
		t.Error("bulky cached summary triggered recompression")
	}
	if sum.calls != 0 || summaries.calls != 0 {
		t.Errorf("summarizer calls = %d, SaveSummary calls = %d, want none", sum.calls, summaries.calls)
	}
	if len(history) != 4 {
		t.Fatalf("history length = %d, want summary message plus 3 recent", len(history))
	}
	if !strings.Contains(history[0].Content, "kickoff planning") {
		t.Errorf("history[0] = %q, want the stored summary reused", history[0].Content)
	}
}

func TestPrepareRecompressesWhenRecentOutgrowsBudget(t *testing.T) {
	t.Parallel()

	// Each message carries enough tokens that the post-summary tail
	// blows through the recompress threshold of a small budget.
	long := strings.Repeat("alpha beta gamma delta", 10)
	msgs := &fakeMessages{all: storedMessages(12, long)}
	summaries := &fakeSummaries{}
	sum := &fakeSummarizer{out: "fresh compressed summary"}
	manager := newTestManager(msgs, summaries, sum)

	stored := "stale summary"
	conv := &models.Conversation{
		ID:               uuid.New(),
		TokenCount:       5000,
		Summary:          &stored,
		SummarizedUpToID: 2,
	}

	history, didCompress, err := manager.Prepare(context.Background(), conv, 200)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !didCompress {
		t.Fatal("expected recompression once recent messages outgrew the budget")
	}
	if summaries.calls != 1 {
		t.Fatalf("SaveSummary calls = %d, want 1", summaries.calls)
	}
	if summaries.upToID <= conv.SummarizedUpToID {
		t.Errorf("summarized_up_to_id = %d, want later than %d", summaries.upToID, conv.SummarizedUpToID)
	}
	if summaries.summary != sum.out {
		t.Errorf("persisted summary = %q, want %q", summaries.summary, sum.out)
	}
	if history[0].Role != models.RoleSystem || !strings.Contains(history[0].Content, sum.out) {
		t.Errorf("history[0] = %+v, want the fresh summary first", history[0])
	}
}

func TestCompressProtectsRecentMessages(t *testing.T) {
	t.Parallel()

	msgs := &fakeMessages{all: storedMessages(10, "filler")}
	summaries := &fakeSummaries{}
	sum := &fakeSummarizer{out: "condensed history"}
	manager := newTestManager(msgs, summaries, sum)

	conv := &models.Conversation{ID: uuid.New(), TokenCount: 5000}

	history, didCompress, err := manager.Prepare(context.Background(), conv, 100)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !didCompress {
		t.Fatal("expected compression")
	}

	// 10 messages: 4 trimmable, half summarized. Summary message plus 2
	// unsummarized trimmable plus the protected 6.
	if len(history) != 1+2+config.ProtectLastN {
		t.Fatalf("history length = %d, want %d", len(history), 1+2+config.ProtectLastN)
	}
	if len(sum.input) != 2 {
		t.Fatalf("summarized %d messages, want 2", len(sum.input))
	}
	if summaries.upToID != 2 {
		t.Errorf("summarized_up_to_id = %d, want 2", summaries.upToID)
	}
	last := history[len(history)-1]
	if last.Content != "filler 10" {
		t.Errorf("last history entry = %q, want the newest message kept verbatim", last.Content)
	}
}

func TestCompressWithNothingTrimmable(t *testing.T) {
	t.Parallel()

	msgs := &fakeMessages{all: storedMessages(4, "oversized")}
	summaries := &fakeSummaries{}
	sum := &fakeSummarizer{out: "unused"}
	manager := newTestManager(msgs, summaries, sum)

	conv := &models.Conversation{ID: uuid.New(), TokenCount: 5000}

	history, didCompress, err := manager.Prepare(context.Background(), conv, 10)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if didCompress {
		t.Error("nothing trimmable, no compression should be recorded")
	}
	if len(history) != 4 {
		t.Fatalf("history length = %d, want the protected tail verbatim", len(history))
	}
	if summaries.calls != 0 || sum.calls != 0 {
		t.Error("no summary work expected with nothing trimmable")
	}
}
