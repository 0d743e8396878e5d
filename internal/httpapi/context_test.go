package httpapi

import (
	"context"
	"testing"
	"time"

	"embedd/pkg/types"
)

func TestSetBaseContext_NilResetsToBackground(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	SetBaseContext(ctx)
	cancel()
	// nolint:staticcheck // SA1012: nil selects the Background fallback
	SetBaseContext(nil)
	if serverBaseCtx.Err() != nil {
		t.Fatalf("base context should be Background after nil reset")
	}
}

func TestJoinContexts_CancelsWhenEitherDone(t *testing.T) {
	for _, which := range []string{"base", "request"} {
		t.Run(which, func(t *testing.T) {
			base, bc := context.WithCancel(context.Background())
			defer bc()
			req, rc := context.WithCancel(context.Background())
			defer rc()
			j, cancelJ := joinContexts(base, req)
			defer cancelJ()
			if which == "base" {
				bc()
			} else {
				rc()
			}
			select {
			case <-j.Done():
			case <-time.After(500 * time.Millisecond):
				t.Fatalf("joined context did not cancel when %s was canceled", which)
			}
		})
	}
}

func TestJoinContexts_CancelFuncReleases(t *testing.T) {
	base, bc := context.WithCancel(context.Background())
	defer bc()
	j, cancelJ := joinContexts(base, context.Background())
	cancelJ()
	if j.Err() == nil {
		t.Fatalf("expected joined context canceled by its cancel func")
	}
	if base.Err() != nil {
		t.Fatalf("base must not be affected")
	}
}

func TestEmbedTimeoutApplied(t *testing.T) {
	SetEmbedTimeout(20 * time.Millisecond)
	t.Cleanup(func() { SetEmbedTimeout(0) })
	svc := &deadlineService{}
	w := postJSON(t, NewMux(svc), "/embed", `{"text":"x"}`)
	if !svc.hadDeadline {
		t.Fatalf("expected a deadline on the service context")
	}
	if w.Code != 200 {
		t.Fatalf("status=%d", w.Code)
	}
}

type deadlineService struct {
	mockService
	hadDeadline bool
}

func (d *deadlineService) Embed(ctx context.Context, text any) (types.EmbedResponse, error) {
	_, d.hadDeadline = ctx.Deadline()
	return d.mockService.Embed(ctx, text)
}
