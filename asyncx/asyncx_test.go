package asyncx

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.eggybyte.com/logdecor/core/errors"
)

func TestGo_Resolves(t *testing.T) {
	f := Go(func() ([]string, error) {
		return []string{"apple", "banana"}, nil
	})

	got, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "banana"}, got)
}

func TestGo_Rejects(t *testing.T) {
	boom := stderrors.New("boom")
	f := Go(func() (int, error) { return 0, boom })

	_, err := f.Await(context.Background())
	assert.Same(t, boom, err)
}

func TestGo_RecoversPanic(t *testing.T) {
	f := Go(func() (int, error) { panic("bad fruit") })

	_, err := f.Await(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInternal))
	assert.Equal(t, "asyncx.Go: INTERNAL: panic: bad fruit", err.Error())
}

func TestPending_FirstSettlementWins(t *testing.T) {
	f, resolve, reject := Pending[string]()

	select {
	case <-f.Done():
		t.Fatal("pending future should not be done")
	default:
	}

	resolve("first")
	reject(stderrors.New("late"))
	resolve("second")

	got, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", got)
}

func TestAwait_ContextCancelled(t *testing.T) {
	f, _, _ := Pending[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTap_RunsOnSuccess(t *testing.T) {
	f, resolve, _ := Pending[int]()
	var calls int

	next := f.Tap(func() error {
		calls++
		return nil
	})
	assert.Equal(t, 0, calls, "hook must wait for settlement")

	resolve(42)

	typed, ok := next.(*Future[int])
	require.True(t, ok, "Tap keeps the concrete type")
	got, err := typed.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, calls)
}

func TestTap_SkipsOnRejection(t *testing.T) {
	boom := stderrors.New("boom")
	var called bool

	next := Rejected[int](boom).Tap(func() error {
		called = true
		return nil
	}).(*Future[int])

	_, err := next.Await(context.Background())
	assert.Same(t, boom, err)
	assert.False(t, called)
}

func TestTap_HookErrorRejects(t *testing.T) {
	hookErr := stderrors.New("no logger")

	next := Resolved("v").Tap(func() error { return hookErr }).(*Future[string])

	_, err := next.Await(context.Background())
	assert.Same(t, hookErr, err)
}

func TestTap_HookPanicRejects(t *testing.T) {
	f := Go(func() (string, error) {
		time.Sleep(5 * time.Millisecond)
		return "v", nil
	})
	next := f.Tap(func() error { panic("format blew up") }).(*Future[string])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := next.Await(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInternal), "err = %v", err)
	assert.Contains(t, err.Error(), "format blew up")
}

func TestTap_OrderOfContinuations(t *testing.T) {
	f, resolve, _ := Pending[int]()
	var order []int

	f.Tap(func() error { order = append(order, 1); return nil })
	f.Tap(func() error { order = append(order, 2); return nil })
	resolve(0)

	assert.Equal(t, []int{1, 2}, order)
}

func TestThen(t *testing.T) {
	f := Then(Resolved(3), func(n int) (string, error) {
		return string(rune('a' + n)), nil
	})

	got, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "d", got)

	boom := stderrors.New("boom")
	rejected := Then(Rejected[int](boom), func(int) (string, error) {
		t.Fatal("fn must not run on rejection")
		return "", nil
	})
	_, err = rejected.Await(context.Background())
	assert.Same(t, boom, err)
}

func TestThen_PanicRejects(t *testing.T) {
	src := Go(func() (int, error) {
		time.Sleep(5 * time.Millisecond)
		return 1, nil
	})
	next := Then(src, func(int) (int, error) { panic("format blew up") })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := next.Await(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "asyncx.Then: INTERNAL: panic: format blew up", err.Error())
	assert.Zero(t, v)

	got, err := src.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestFutureImplementsDeferred(t *testing.T) {
	var _ Deferred = (*Future[int])(nil)
}
