package processors

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"meetingSummarize/core"
)

type fakeEngine struct {
	mu       sync.Mutex
	results  []engineResult
	calls    int
	active   atomic.Int32
	maxSeen  atomic.Int32
	blockFor time.Duration
}

type engineResult struct {
	text string
	err  error
}

func (f *fakeEngine) Transcribe(ctx context.Context, audioPath, model string) (string, error) {
	cur := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		prev := f.maxSeen.Load()
		if cur <= prev || f.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}
	if f.blockFor > 0 {
		time.Sleep(f.blockFor)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	r := f.results[i]
	return r.text, r.err
}

func writeTestAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(path, []byte("not really audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscribeInvalidModel(t *testing.T) {
	engine := &fakeEngine{results: []engineResult{{text: "hi"}}}
	tr := newTranscriber(engine, 1, 1)

	_, err := tr.Transcribe(context.Background(), writeTestAudio(t), "huge-v9")
	var serr *core.StageError
	if !errors.As(err, &serr) || serr.Kind != core.ErrKindBadInput {
		t.Fatalf("error = %v, want bad_input", err)
	}
	if engine.calls != 0 {
		t.Error("invalid model reached the engine")
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	engine := &fakeEngine{results: []engineResult{{text: "hi"}}}
	tr := newTranscriber(engine, 1, 1)

	_, err := tr.Transcribe(context.Background(), "/nope/missing.mp3", "base")
	var serr *core.StageError
	if !errors.As(err, &serr) || serr.Kind != core.ErrKindBadInput {
		t.Fatalf("error = %v, want bad_input", err)
	}
}

func TestTranscribeRetriesEngineFailure(t *testing.T) {
	engine := &fakeEngine{results: []engineResult{
		{err: errors.New("gpu hiccup")},
		{text: "second try worked"},
	}}
	tr := newTranscriber(engine, 1, 2)
	tr.retryDelay = 0

	text, err := tr.Transcribe(context.Background(), writeTestAudio(t), "base")
	if err != nil {
		t.Fatal(err)
	}
	if text != "second try worked" {
		t.Errorf("text = %q", text)
	}
	if engine.calls != 2 {
		t.Errorf("engine calls = %d, want 2", engine.calls)
	}
}

// bad_input never retries, no matter how many attempts remain.
func TestTranscribeBadInputFailsFast(t *testing.T) {
	engine := &fakeEngine{results: []engineResult{
		{err: core.NewStageError(core.StageTranscription, core.ErrKindBadInput, "corrupt header")},
	}}
	tr := newTranscriber(engine, 1, 3)
	tr.retryDelay = 0

	_, err := tr.Transcribe(context.Background(), writeTestAudio(t), "base")
	var serr *core.StageError
	if !errors.As(err, &serr) || serr.Kind != core.ErrKindBadInput {
		t.Fatalf("error = %v, want bad_input", err)
	}
	if engine.calls != 1 {
		t.Errorf("engine calls = %d, want 1", engine.calls)
	}
}

func TestTranscribeExhaustsRetries(t *testing.T) {
	engine := &fakeEngine{results: []engineResult{{err: errors.New("always broken")}}}
	tr := newTranscriber(engine, 1, 3)
	tr.retryDelay = 0

	_, err := tr.Transcribe(context.Background(), writeTestAudio(t), "base")
	var serr *core.StageError
	if !errors.As(err, &serr) || serr.Kind != core.ErrKindEngineFailure {
		t.Fatalf("error = %v, want engine_failure", err)
	}
	if engine.calls != 3 {
		t.Errorf("engine calls = %d, want 3", engine.calls)
	}
}

// The slot gate caps concurrent engine executions.
func TestTranscribeConcurrencyGate(t *testing.T) {
	engine := &fakeEngine{
		results:  []engineResult{{text: "ok"}},
		blockFor: 20 * time.Millisecond,
	}
	tr := newTranscriber(engine, 2, 1)
	audio := writeTestAudio(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Transcribe(context.Background(), audio, "base")
		}()
	}
	wg.Wait()

	if max := engine.maxSeen.Load(); max > 2 {
		t.Errorf("observed %d concurrent engine runs, gate allows 2", max)
	}
}

func TestTranscribeCanceledWaitingForSlot(t *testing.T) {
	engine := &fakeEngine{
		results:  []engineResult{{text: "ok"}},
		blockFor: 200 * time.Millisecond,
	}
	tr := newTranscriber(engine, 1, 1)
	audio := writeTestAudio(t)

	started := make(chan struct{})
	go func() {
		close(started)
		tr.Transcribe(context.Background(), audio, "base")
	}()
	<-started
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := tr.Transcribe(ctx, audio, "base")
	var serr *core.StageError
	if !errors.As(err, &serr) || serr.Kind != core.ErrKindCanceled {
		t.Fatalf("error = %v, want canceled", err)
	}
}

// The helper script is shared across engine slots, so concurrent callers
// must all observe one stable, fully written file.
func TestWhisperScriptSharedAcrossCallers(t *testing.T) {
	var wg sync.WaitGroup
	paths := make([]string, 8)
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = whisperScript()
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		if errs[i] != nil {
			t.Fatal(errs[i])
		}
		if paths[i] != paths[0] {
			t.Fatalf("caller %d got path %q, caller 0 got %q", i, paths[i], paths[0])
		}
	}
	got, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(whisperHelperScript) {
		t.Error("materialized helper script does not match the embedded source")
	}
}

func TestTranscribeTrimsWhitespace(t *testing.T) {
	engine := &fakeEngine{results: []engineResult{{text: "  hello world \n"}}}
	tr := newTranscriber(engine, 1, 1)

	text, err := tr.Transcribe(context.Background(), writeTestAudio(t), "base")
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello world" {
		t.Errorf("text = %q", text)
	}
}
