package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/data"
)

// fakeStages counts calls into each pipeline collaborator.
type fakeStages struct {
	mu      sync.Mutex
	loads   int
	renders int
	copies  int
	// blockRender, when set, is received from inside RenderAll to hold a
	// build open while another goroutine tries to enter the pipeline.
	blockRender chan struct{}
}

func (f *fakeStages) Load(context.Context) data.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return data.Context{}
}

func (f *fakeStages) RenderAll(context.Context, data.Context) {
	f.mu.Lock()
	f.renders++
	block := f.blockRender
	f.mu.Unlock()
	if block != nil {
		<-block
	}
}

func (f *fakeStages) CopyAll(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copies++
}

func (f *fakeStages) counts() (loads, renders, copies int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads, f.renders, f.copies
}

func TestRun_EmptyTrigger_PerformsFullBuild(t *testing.T) {
	fake := &fakeStages{}
	p := New(fake, fake, fake, nil)

	p.Run(context.Background(), "")

	loads, renders, copies := fake.counts()
	require.Equal(t, 1, loads)
	require.Equal(t, 1, renders)
	require.Equal(t, 1, copies)
}

func TestRun_HTMLTrigger_CopiesOnly(t *testing.T) {
	fake := &fakeStages{}
	p := New(fake, fake, fake, nil)

	p.Run(context.Background(), "templates/foo.html")

	loads, renders, copies := fake.counts()
	require.Equal(t, 0, loads)
	require.Equal(t, 0, renders)
	require.Equal(t, 1, copies)
}

func TestRun_DataTrigger_ReloadsAndRendersWithoutCopy(t *testing.T) {
	fake := &fakeStages{}
	p := New(fake, fake, fake, nil)

	p.Run(context.Background(), "data/x.json")

	loads, renders, copies := fake.counts()
	require.Equal(t, 1, loads)
	require.Equal(t, 1, renders)
	require.Equal(t, 0, copies)
}

func TestRun_TemplateTrigger_ReloadsAndRendersWithoutCopy(t *testing.T) {
	fake := &fakeStages{}
	p := New(fake, fake, fake, nil)

	p.Run(context.Background(), "templates/pages/home.html.j2")

	loads, renders, copies := fake.counts()
	require.Equal(t, 1, loads)
	require.Equal(t, 1, renders)
	require.Equal(t, 0, copies)
}

func TestRun_OverlappingTriggers_AreSerialized(t *testing.T) {
	fake := &fakeStages{blockRender: make(chan struct{})}
	p := New(fake, fake, fake, nil)

	var secondDone atomic.Bool
	firstEntered := make(chan struct{})

	go func() {
		close(firstEntered)
		p.Run(context.Background(), "data/a.json")
	}()
	<-firstEntered

	// Wait until the first build is actually inside RenderAll.
	for {
		if _, renders, _ := fake.counts(); renders == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		p.Run(context.Background(), "data/b.json")
		secondDone.Store(true)
		close(done)
	}()

	// The second build must not start while the first holds the pipeline.
	_, renders, _ := fake.counts()
	require.Equal(t, 1, renders)
	require.False(t, secondDone.Load())

	fake.mu.Lock()
	block := fake.blockRender
	fake.blockRender = nil
	fake.mu.Unlock()
	close(block)
	<-done

	loads, renders, copies := fake.counts()
	require.Equal(t, 2, loads)
	require.Equal(t, 2, renders)
	require.Equal(t, 0, copies)
	require.True(t, secondDone.Load())
}

func TestClassify_TriggerSuffixes(t *testing.T) {
	require.Equal(t, OutcomeFull, classify(""))
	require.Equal(t, OutcomeCopy, classify("templates/about.html"))
	require.Equal(t, OutcomeRender, classify("templates/about.html.j2"))
	require.Equal(t, OutcomeRender, classify("data/site.yaml"))
}
