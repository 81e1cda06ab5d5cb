package combobox

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"debate-platform-backend/internal/common/pagination"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeTopics is an in-memory /topics endpoint.
type fakeTopics struct {
	mu      sync.Mutex
	nextID  int
	names   map[string]string
	failPut bool
	failDel bool
	// a search for block waits for ctx
	block   string
	gets    int
	writes  []string
	lastPut map[string]string
}

func newFakeTopics(names ...string) *fakeTopics {
	f := &fakeTopics{names: map[string]string{}}
	for _, n := range names {
		f.nextID++
		f.names[strconv.Itoa(f.nextID)] = n
	}
	return f
}

func (f *fakeTopics) Get(ctx context.Context, path string, query map[string]string, out any) error {
	f.mu.Lock()
	f.gets++
	block := f.block
	f.mu.Unlock()

	search := query["search"]
	if block != "" && search == block {
		<-ctx.Done()
		return ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var items []map[string]any
	for id := 1; id <= f.nextID; id++ {
		name, ok := f.names[strconv.Itoa(id)]
		if !ok || !strings.Contains(strings.ToLower(name), strings.ToLower(search)) {
			continue
		}
		items = append(items, map[string]any{"id": strconv.Itoa(id), "name": name})
	}
	*(out.(*pagination.Page[map[string]any])) = pagination.NewPage(items, len(items), pagination.Params{Page: 1, Limit: 20})
	return nil
}

func (f *fakeTopics) Post(_ context.Context, _ string, body, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := body.(map[string]string)["name"]
	f.nextID++
	id := strconv.Itoa(f.nextID)
	f.names[id] = name
	*(out.(*map[string]any)) = map[string]any{"id": id, "name": name}
	return nil
}

func (f *fakeTopics) Put(_ context.Context, path string, body, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, "PUT "+path)
	if f.failPut {
		return stderrors.New("forbidden")
	}
	f.lastPut = body.(map[string]string)
	f.names[path[strings.LastIndex(path, "/")+1:]] = f.lastPut["name"]
	return nil
}

func (f *fakeTopics) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, "DELETE "+path)
	if f.failDel {
		return stderrors.New("forbidden")
	}
	delete(f.names, path[strings.LastIndex(path, "/")+1:])
	return nil
}

func labels(opts []Option) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Label)
	}
	return out
}

func TestNew_ValidatesSettings(t *testing.T) {
	f := newFakeTopics()

	_, err := New(f, "topics", Settings{}, Format{})
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = New(f, "/topics", Settings{}, Format{LabelField: "na me"})
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = New(f, "/topics", Settings{Creatable: true, AllowCreate: true}, Format{})
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = New(nil, "/topics", Settings{}, Format{})
	assert.ErrorIs(t, err, ErrInvalidSettings)

	m, err := New(f, "/topics/", Settings{}, Format{})
	require.NoError(t, err)
	assert.Equal(t, "/topics", m.endpoint)
	assert.Equal(t, Format{LabelField: "name", ValueField: "id"}, m.format)
}

func TestModel_ToggleSingleAndMulti(t *testing.T) {
	single, _ := New(newFakeTopics(), "/topics", Settings{}, Format{})
	single.Toggle(Option{Label: "AI", Value: "1"})
	single.Toggle(Option{Label: "Climate", Value: "2"})
	assert.Equal(t, []string{"Climate"}, labels(single.Selected()))
	single.Toggle(Option{Label: "Climate", Value: "2"})
	assert.Empty(t, single.Selected())

	multi, _ := New(newFakeTopics(), "/topics", Settings{Multi: true}, Format{})
	multi.Toggle(Option{Label: "AI", Value: "1"})
	multi.Toggle(Option{Label: "Climate", Value: "2"})
	assert.Equal(t, []string{"AI", "Climate"}, labels(multi.Selected()))
}

func TestModel_Search(t *testing.T) {
	m, _ := New(newFakeTopics("AI safety", "Climate", "Aid policy"), "/topics", Settings{}, Format{})

	opts, err := m.Search(context.Background(), "ai")
	require.NoError(t, err)
	assert.Equal(t, []string{"AI safety", "Aid policy"}, labels(opts))
	assert.Equal(t, "1", opts[0].Value)
}

func TestModel_SearchCancelsPrevious(t *testing.T) {
	f := newFakeTopics("AI safety", "Climate")
	f.block = "slow"
	m, _ := New(f, "/topics", Settings{}, Format{})

	errc := make(chan error, 1)
	go func() {
		_, err := m.Search(context.Background(), "slow")
		errc <- err
	}()
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.gets == 1
	}, time.Second, 5*time.Millisecond)

	opts, err := m.Search(context.Background(), "clim")
	require.NoError(t, err)
	assert.Equal(t, []string{"Climate"}, labels(opts))

	assert.ErrorIs(t, <-errc, ErrStale)
	assert.Equal(t, []string{"Climate"}, labels(m.Options()))
}

func TestModel_CreateCreatableIsLocal(t *testing.T) {
	f := newFakeTopics("AI")
	m, _ := New(f, "/topics", Settings{Creatable: true, Multi: true}, Format{})

	opt, err := m.Create(context.Background(), "  Space  ")
	require.NoError(t, err)
	assert.True(t, opt.Transient)
	assert.Equal(t, "Space", opt.Label)
	assert.Equal(t, []string{"Space"}, labels(m.Selected()))
	assert.Len(t, f.names, 1)

	_, err = m.Create(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyLabel)
}

func TestModel_CreatePostsWhenAllowed(t *testing.T) {
	f := newFakeTopics("AI")
	m, _ := New(f, "/topics", Settings{AllowCreate: true}, Format{})

	opt, err := m.Create(context.Background(), "Space")
	require.NoError(t, err)
	assert.False(t, opt.Transient)
	assert.Equal(t, "2", opt.Value)
	assert.Equal(t, "Space", f.names["2"])
	assert.Equal(t, []string{"Space"}, labels(m.Selected()))
}

func TestModel_CreatePrefersExistingMatch(t *testing.T) {
	f := newFakeTopics("AI")
	m, _ := New(f, "/topics", Settings{AllowCreate: true}, Format{})
	_, err := m.Search(context.Background(), "")
	require.NoError(t, err)

	opt, err := m.Create(context.Background(), "ai")
	require.NoError(t, err)
	assert.Equal(t, "1", opt.Value)
	assert.Len(t, f.names, 1)
}

func TestModel_CreateNotAllowed(t *testing.T) {
	m, _ := New(newFakeTopics(), "/topics", Settings{}, Format{})
	_, err := m.Create(context.Background(), "Space")
	assert.ErrorIs(t, err, ErrNotAllowed)
}

func TestModel_UpdateRollsBackOnError(t *testing.T) {
	f := newFakeTopics("AI")
	m, _ := New(f, "/topics", Settings{AllowUpdate: true}, Format{})
	_, _ = m.Search(context.Background(), "")
	m.Toggle(m.Options()[0])

	require.NoError(t, m.Update(context.Background(), "1", "Artificial intelligence"))
	assert.Equal(t, "Artificial intelligence", m.Selected()[0].Label)
	assert.Equal(t, "Artificial intelligence", f.names["1"])
	assert.Equal(t, map[string]string{"name": "Artificial intelligence"}, f.lastPut)

	f.failPut = true
	assert.Error(t, m.Update(context.Background(), "1", "Robots"))
	assert.Equal(t, "Artificial intelligence", m.Selected()[0].Label)
	assert.Equal(t, "Artificial intelligence", m.Options()[0].Label)

	assert.ErrorIs(t, m.Update(context.Background(), "99", "x"), ErrUnknownOption)
}

func TestModel_RemoveExcisesThenRefetches(t *testing.T) {
	f := newFakeTopics("AI", "Climate")
	m, _ := New(f, "/topics", Settings{AllowDelete: true, Multi: true}, Format{})
	_, _ = m.Search(context.Background(), "")
	m.Toggle(Option{Label: "AI", Value: "1"})

	require.NoError(t, m.Remove(context.Background(), "1"))
	assert.Empty(t, m.Selected())
	assert.Equal(t, []string{"Climate"}, labels(m.Options()))
	assert.Equal(t, 2, f.gets)
}

func TestModel_RemoveRestoresOnError(t *testing.T) {
	f := newFakeTopics("AI", "Climate")
	f.failDel = true
	m, _ := New(f, "/topics", Settings{AllowDelete: true}, Format{})
	_, _ = m.Search(context.Background(), "")
	m.Toggle(Option{Label: "AI", Value: "1"})

	assert.Error(t, m.Remove(context.Background(), "1"))
	assert.Equal(t, []string{"AI"}, labels(m.Selected()))
	assert.Equal(t, []string{"AI", "Climate"}, labels(m.Options()))
}

func TestModel_OperationsRespectSettings(t *testing.T) {
	m, _ := New(newFakeTopics("AI"), "/topics", Settings{}, Format{})
	assert.ErrorIs(t, m.Update(context.Background(), "1", "x"), ErrNotAllowed)
	assert.ErrorIs(t, m.Remove(context.Background(), "1"), ErrNotAllowed)
}

func TestModel_TransientOptionsStayLocal(t *testing.T) {
	f := newFakeTopics("AI")
	m, _ := New(f, "/topics", Settings{Creatable: true, Multi: true}, Format{})

	_, err := m.Create(context.Background(), "Space race")
	require.NoError(t, err)

	require.NoError(t, m.Update(context.Background(), "Space race", "Arms race"))
	assert.Equal(t, []string{"Arms race"}, labels(m.Selected()))
	assert.ErrorIs(t, m.Update(context.Background(), "Space race", " "), ErrEmptyLabel)

	require.NoError(t, m.Remove(context.Background(), "Space race"))
	assert.Empty(t, m.Selected())
	assert.Empty(t, m.Options())

	assert.Empty(t, f.writes)
	assert.Equal(t, 0, f.gets)
}

func TestModel_EscapesValueInPath(t *testing.T) {
	f := newFakeTopics()
	m, _ := New(f, "/topics", Settings{AllowUpdate: true, AllowDelete: true}, Format{})
	m.Toggle(Option{Label: "odd", Value: "a/b c"})

	require.NoError(t, m.Update(context.Background(), "a/b c", "odder"))
	require.NoError(t, m.Remove(context.Background(), "a/b c"))
	assert.Equal(t, []string{"PUT /topics/a%2Fb%20c", "DELETE /topics/a%2Fb%20c"}, f.writes)
}
