package golf

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestProgressionAdvancesThroughHoles(t *testing.T) {
	p := NewProgression(3, "alice", &recordingScores{})
	ctx := context.Background()

	if !p.HoleCompleted(3) {
		t.Fatalf("hole 1 completion rejected")
	}
	if p.HoleCompleted(2) || p.LimitReached(8) {
		t.Fatalf("second terminal transition accepted")
	}
	if p.TotalShots() != 3 {
		t.Fatalf("totalShots = %d", p.TotalShots())
	}
	if act, err := p.Continue(ctx); err != nil || act != ActionNextHole || p.Hole() != 2 {
		t.Fatalf("continue = %s, %v; hole %d", act, err, p.Hole())
	}
	if act, _ := p.Continue(ctx); act != ActionNone {
		t.Fatalf("continue while active = %s", act)
	}

	p.LimitReached(8)
	if p.State() != StateLimitReached {
		t.Fatalf("state = %s", p.State())
	}
	p.Continue(ctx)
	if p.Hole() != 3 || p.TotalShots() != 11 {
		t.Fatalf("hole %d shots %d", p.Hole(), p.TotalShots())
	}
}

func TestProgressionSubmitsFinalScoreOnce(t *testing.T) {
	scores := &recordingScores{}
	p := NewProgression(6, "alice", scores)
	ctx := context.Background()

	perHole := []int{2, 3, 1, 4, 2, 2}
	for i, shots := range perHole {
		p.HoleCompleted(shots)
		act, err := p.Continue(ctx)
		if err != nil {
			t.Fatalf("hole %d: %v", i+1, err)
		}
		want := ActionNextHole
		if i == len(perHole)-1 {
			want = ActionShowResults
		}
		if act != want {
			t.Fatalf("hole %d: action %s, want %s", i+1, act, want)
		}
	}
	if act, err := p.Continue(ctx); act != ActionShowResults || err != nil {
		t.Fatalf("repeat continue = %s, %v", act, err)
	}

	got := scores.submitted()
	want := Score{Username: "alice", TotalShots: 14, TotalHoles: 6}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("submitted %+v, want exactly %+v", got, want)
	}
	snap := p.Snapshot()
	if snap.State != "session_finished" || !snap.Submitted || snap.Hole != 6 {
		t.Fatalf("snapshot %+v", snap)
	}
}

func TestProgressionSubmitFailureIsRetryable(t *testing.T) {
	scores := &recordingScores{errs: []error{errors.New("leaderboard down")}}
	p := NewProgression(1, "alice", scores)
	p.LimitReached(8)

	act, err := p.Continue(context.Background())
	if !errors.Is(err, ErrScoreSubmit) || act != ActionNone {
		t.Fatalf("continue = %s, %v; want ErrScoreSubmit", act, err)
	}
	snap := p.Snapshot()
	if snap.State != "session_finished" || snap.Submitted || snap.Error == "" {
		t.Fatalf("snapshot after failure %+v", snap)
	}

	act, err = p.Continue(context.Background())
	if err != nil || act != ActionShowResults {
		t.Fatalf("retry = %s, %v", act, err)
	}
	if n := len(scores.submitted()); n != 2 {
		t.Fatalf("submit attempts = %d, want 2", n)
	}
	if p.Snapshot().Error != "" {
		t.Fatalf("error kept after successful retry")
	}
}

func TestProgressionRejectsContinueWhileSubmitting(t *testing.T) {
	scores := &recordingScores{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	p := NewProgression(1, "alice", scores)
	p.HoleCompleted(4)

	type result struct {
		act Action
		err error
	}
	first := make(chan result, 1)
	go func() {
		act, err := p.Continue(context.Background())
		first <- result{act, err}
	}()
	select {
	case <-scores.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("submit never started")
	}

	if _, err := p.Continue(context.Background()); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("second continue err = %v, want ErrSubmitInFlight", err)
	}
	close(scores.gate)

	r := <-first
	if r.err != nil || r.act != ActionShowResults {
		t.Fatalf("first continue = %s, %v", r.act, r.err)
	}
	if n := len(scores.submitted()); n != 1 {
		t.Fatalf("submitted %d times", n)
	}
}

func TestProgressionLoadFailedRetries(t *testing.T) {
	p := NewProgression(2, "alice", nil)
	if !p.LoadFailed(ErrLevelLoad) {
		t.Fatalf("load failure rejected")
	}
	if snap := p.Snapshot(); snap.State != "load_failed" || snap.Error == "" {
		t.Fatalf("snapshot %+v", snap)
	}
	act, err := p.Continue(context.Background())
	if err != nil || act != ActionRetryHole || p.State() != StateActive || p.Hole() != 1 {
		t.Fatalf("continue = %s, %v, state %s hole %d", act, err, p.State(), p.Hole())
	}
}

func TestProgressionWithoutSubmitter(t *testing.T) {
	p := NewProgression(1, "alice", nil)
	p.HoleCompleted(1)
	if _, err := p.Continue(context.Background()); !errors.Is(err, ErrScoreSubmit) {
		t.Fatalf("err = %v", err)
	}
}

func TestProgressionRefusesAnonymousScore(t *testing.T) {
	scores := &recordingScores{}
	p := NewProgression(1, "", scores)
	p.HoleCompleted(3)

	if _, err := p.Continue(context.Background()); !errors.Is(err, ErrScoreSubmit) {
		t.Fatalf("err = %v, want ErrScoreSubmit", err)
	}
	if n := len(scores.submitted()); n != 0 {
		t.Fatalf("anonymous score submitted %d times", n)
	}

	p.SetUsername("alice")
	act, err := p.Continue(context.Background())
	if err != nil || act != ActionShowResults {
		t.Fatalf("continue after identity = %s, %v", act, err)
	}
	if got := scores.submitted(); len(got) != 1 || got[0].Username != "alice" || got[0].TotalShots != 3 {
		t.Fatalf("submitted %+v", got)
	}
}
