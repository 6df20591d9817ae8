package permission

import (
	"context"
	"errors"
	"testing"

	"github.com/justyntemme/nexus/internal/host"
	"github.com/justyntemme/nexus/internal/host/hosttest"
)

type recordingDeleter struct {
	deleted []string
	err     error
}

func (r *recordingDeleter) Delete(ctx context.Context, key string) error {
	r.deleted = append(r.deleted, key)
	return r.err
}

func TestGatekeeper_Transitions(t *testing.T) {
	boom := errors.New("handle gone")

	testCases := []struct {
		name      string
		query     host.PermissionState
		queryErr  error
		request   func() (host.PermissionState, error)
		want      State
		wantErr   error
		prompted  bool
		deletedOK bool
	}{
		{name: "already granted", query: host.PermissionGranted, want: Granted},
		{
			name:     "prompt accepted",
			query:    host.PermissionPrompt,
			request:  func() (host.PermissionState, error) { return host.PermissionGranted, nil },
			want:     Granted,
			prompted: true,
		},
		{
			name:     "prompt refused",
			query:    host.PermissionPrompt,
			request:  func() (host.PermissionState, error) { return host.PermissionDenied, nil },
			want:     Rejected,
			wantErr:  ErrPermissionDenied,
			prompted: true,
		},
		{
			name:     "denied query still prompts",
			query:    host.PermissionDenied,
			request:  func() (host.PermissionState, error) { return host.PermissionPrompt, nil },
			want:     Rejected,
			wantErr:  ErrPermissionDenied,
			prompted: true,
		},
		{name: "query fails", queryErr: boom, want: Invalid, wantErr: ErrHandleInvalid, deletedOK: true},
		{
			name:      "request fails",
			query:     host.PermissionPrompt,
			request:   func() (host.PermissionState, error) { return 0, boom },
			want:      Invalid,
			wantErr:   ErrHandleInvalid,
			prompted:  true,
			deletedOK: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := hosttest.NewDir("photos")
			dir.QueryState = tc.query
			dir.QueryErr = tc.queryErr
			dir.RequestFunc = tc.request
			store := &recordingDeleter{}

			d := New(store).Check(context.Background(), dir.ID(), dir)
			if d.State != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, d.State)
			}
			if tc.wantErr == nil && d.Err() != nil {
				t.Errorf("unexpected error %v", d.Err())
			}
			if tc.wantErr != nil && !errors.Is(d.Err(), tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, d.Err())
			}
			if prompted := dir.Requests > 0; prompted != tc.prompted {
				t.Errorf("expected prompted=%v, got %v", tc.prompted, prompted)
			}
			if deleted := len(store.deleted) == 1; deleted != tc.deletedOK {
				t.Errorf("expected deleted=%v, got %v", tc.deletedOK, store.deleted)
			}
		})
	}
}

func TestGatekeeper_InvalidKeepsCause(t *testing.T) {
	dir := hosttest.NewDir("gone")
	dir.QueryErr = host.ErrStale

	d := New(nil).Check(context.Background(), "k", dir)
	if !errors.Is(d.Err(), host.ErrStale) || !errors.Is(d.Err(), ErrHandleInvalid) {
		t.Errorf("expected both ErrHandleInvalid and ErrStale, got %v", d.Err())
	}
}

func TestGatekeeper_DeleteFailureNotSurfaced(t *testing.T) {
	dir := hosttest.NewDir("gone")
	dir.QueryErr = host.ErrStale
	store := &recordingDeleter{err: errors.New("storage down")}

	d := New(store).Check(context.Background(), "k", dir)
	if d.State != Invalid {
		t.Fatalf("expected Invalid, got %s", d.State)
	}
	if errors.Is(d.Err(), store.err) {
		t.Error("storage failure during cleanup should not be reported")
	}
}

func TestGatekeeper_NilHandle(t *testing.T) {
	d := New(nil).Check(context.Background(), "k", nil)
	if d.State != Invalid || d.Granted() {
		t.Errorf("nil handle should be invalid, got %s", d.State)
	}
}
