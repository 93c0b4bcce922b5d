package controller_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/edumarques81/stellar-remote/internal/bus"
	"github.com/edumarques81/stellar-remote/internal/controller"
	"github.com/edumarques81/stellar-remote/internal/domain/backend"
	"github.com/edumarques81/stellar-remote/internal/domain/model"
	"github.com/edumarques81/stellar-remote/internal/infra/mopidy"
	"github.com/edumarques81/stellar-remote/internal/message"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const wait = time.Second

type call struct {
	method string
	params map[string]any
}

// fakeServer answers RPC calls from a table of JSON results. Methods missing
// from the table fail like an unreachable server.
type fakeServer struct {
	mu      sync.Mutex
	results map[string]string
	respond func(method string, params map[string]any) (string, bool)
	calls   []call
}

func (f *fakeServer) Call(_ context.Context, method string, params map[string]any) (json.RawMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method, params})
	if f.respond != nil {
		if res, ok := f.respond(method, params); ok {
			return json.RawMessage(res), true
		}
	}
	res, ok := f.results[method]
	return json.RawMessage(res), ok
}

func (f *fakeServer) set(method, result string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[method] = result
}

func (f *fakeServer) unset(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.results, method)
}

func (f *fakeServer) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.method == method {
			n++
		}
	}
	return n
}

func (f *fakeServer) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.method)
	}
	return out
}

func (f *fakeServer) last(method string) (call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].method == method {
			return f.calls[i], true
		}
	}
	return call{}, false
}

// outbox records follow-up messages instead of queueing them.
type outbox struct {
	mu   sync.Mutex
	msgs []message.Message
}

func (o *outbox) Send(msg message.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
}

func (o *outbox) types() []message.Type {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]message.Type, 0, len(o.msgs))
	for _, m := range o.msgs {
		out = append(out, m.Type())
	}
	return out
}

func (o *outbox) find(t message.Type) (message.Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, m := range o.msgs {
		if m.Type() == t {
			return m, true
		}
	}
	return message.Message{}, false
}

func (o *outbox) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = nil
}

type harness struct {
	t      *testing.T
	server *fakeServer
	out    *outbox
	model  *model.Model
	env    controller.Env
	disp   *bus.Dispatcher
}

// newHarness runs a model executor and a dispatcher that is driven by hand
// through deliver.
func newHarness(t *testing.T, disabled ...backend.Kind) *harness {
	t.Helper()

	exec := model.NewExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		exec.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	server := &fakeServer{results: map[string]string{}}
	out := &outbox{}
	m := model.New(exec)
	return &harness{
		t:      t,
		server: server,
		out:    out,
		model:  m,
		env: controller.Env{
			Core:     mopidy.NewCore(server, 2),
			Model:    m,
			Sender:   out,
			Backends: backend.NewRegistry(backend.Defaults(), disabled...),
		},
		disp: bus.NewDispatcher(),
	}
}

func (h *harness) register(consumers ...bus.Consumer) {
	h.t.Helper()
	for _, c := range consumers {
		require.NoError(h.t, h.disp.Register(c))
	}
}

// deliver dispatches msg synchronously and waits for the model writes,
// including writes submitted by other writes.
func (h *harness) deliver(t message.Type, data message.Data) {
	h.t.Helper()
	h.disp.Dispatch(context.Background(), message.New(t, data))
	h.settle()
}

func (h *harness) settle() {
	h.t.Helper()
	for i := 0; i < 3; i++ {
		require.True(h.t, h.model.Executor().Flush(wait), "executor did not drain")
	}
}

// JSON fixtures.

const (
	trackA1 = `{"__model__":"Track","uri":"local:track:a1","name":"One","length":200000,"track_no":1,
		"artists":[{"name":"Band"}],"album":{"uri":"local:album:a","name":"Album A","artists":[{"name":"Band"}],"num_tracks":2}}`
	trackA2 = `{"__model__":"Track","uri":"local:track:a2","name":"Two","length":100000,"track_no":2,
		"artists":[{"name":"Band"}],"album":{"uri":"local:album:a","name":"Album A","artists":[{"name":"Band"}],"num_tracks":2}}`
	tlTrack5 = `{"__model__":"TlTrack","tlid":5,"track":` + trackA1 + `}`
)
