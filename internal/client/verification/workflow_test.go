package verification

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debate-platform-backend/internal/client/localstore"
	"debate-platform-backend/internal/features/verification/models"
)

type call struct {
	Method string
	Path   string
	Query  map[string]string
	Body   any
}

// fakeAPI answers with canned JSON per path.
type fakeAPI struct {
	calls     []call
	responses map[string]any
}

func (f *fakeAPI) respond(path string, out any) error {
	resp, ok := f.responses[path]
	if !ok || out == nil {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (f *fakeAPI) Get(_ context.Context, path string, query map[string]string, out any) error {
	f.calls = append(f.calls, call{Method: "GET", Path: path, Query: query})
	return f.respond(path, out)
}

func (f *fakeAPI) Post(_ context.Context, path string, body, out any) error {
	f.calls = append(f.calls, call{Method: "POST", Path: path, Body: body})
	return f.respond(path, out)
}

func newWorkflow(t *testing.T) (*Workflow, *fakeAPI, *localstore.Store) {
	store, err := localstore.Open(filepath.Join(t.TempDir(), "state.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	api := &fakeAPI{responses: map[string]any{}}
	return NewWorkflow(api, store), api, store
}

func TestWorkflow_StartKeepsCode(t *testing.T) {
	w, api, _ := newWorkflow(t)
	api.responses["/verifications/github/start"] = models.Challenge{
		Platform:  models.PlatformGitHub,
		Code:      "7QX2",
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}

	challenge, err := w.Start(context.Background(), "GitHub")
	require.NoError(t, err)
	assert.Equal(t, "7QX2", challenge.Code)

	code, ok, err := w.PendingCode(context.Background(), "github")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "7QX2", code)
}

func TestWorkflow_SubmitRejectsBadURLLocally(t *testing.T) {
	w, api, _ := newWorkflow(t)

	_, err := w.Submit(context.Background(), "linkedin", "https://github.com/jdoe")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "profile_url", verr.Field)

	_, err = w.Submit(context.Background(), "myspace", "https://myspace.com/jdoe")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "platform", verr.Field)

	assert.Empty(t, api.calls)
}

func TestWorkflow_SubmitDropsCodeAndMirror(t *testing.T) {
	w, api, store := newWorkflow(t)
	ctx := context.Background()

	api.responses["/verifications"] = models.NewOverview(42)
	_, err := w.Status(ctx)
	require.NoError(t, err)
	require.NoError(t, store.SaveCode(ctx, models.PlatformLinkedIn, "7QX2", time.Now().Add(time.Hour)))

	api.responses["/verifications/linkedin/submit"] = models.Request{ID: "42_linkedin", Status: models.RequestPending}
	req, err := w.Submit(ctx, "linkedin", " https://www.linkedin.com/in/jdoe ")
	require.NoError(t, err)
	assert.Equal(t, "42_linkedin", req.ID)
	assert.Equal(t, models.SubmitRequest{ProfileURL: "https://www.linkedin.com/in/jdoe"}, api.calls[1].Body)

	_, ok, err := w.PendingCode(ctx, "linkedin")
	require.NoError(t, err)
	assert.False(t, ok)

	// зеркало сброшено, статус перечитывается с сервера
	_, err = w.Status(ctx)
	require.NoError(t, err)
	assert.Len(t, api.calls, 3)
	assert.Equal(t, "/verifications", api.calls[2].Path)
}

func TestWorkflow_StatusUsesMirror(t *testing.T) {
	w, api, _ := newWorkflow(t)
	overview := models.NewOverview(42)
	overview.SocialLinks[models.PlatformGitHub] = "https://github.com/jdoe"
	api.responses["/verifications"] = overview

	for i := 0; i < 3; i++ {
		got, err := w.Status(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "https://github.com/jdoe", got.SocialLinks[models.PlatformGitHub])
	}
	assert.Len(t, api.calls, 1)
}

func TestWorkflow_AdminCalls(t *testing.T) {
	w, api, _ := newWorkflow(t)
	ctx := context.Background()

	_, err := w.Requests(ctx, "done", 1, 10)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = w.Requests(ctx, "pending", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"status": "pending", "page": "2", "limit": ""}, api.calls[0].Query)

	api.responses["/admin/verification-requests/42_github/reject"] = models.Request{ID: "42_github", Status: models.RequestRejected}
	req, err := w.Reject(ctx, "42_github", "  code missing ")
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, req.Status)
	assert.Equal(t, models.RejectRequest{Reason: "code missing"}, api.calls[1].Body)

	_, err = w.Approve(ctx, " ")
	require.ErrorAs(t, err, &verr)
}
