package signalctl

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// resetForTest clears the package-level singleton state so each test
// observes a fresh Install call; production code never does this.
func resetForTest() {
	once = sync.Once{}
	ctx = nil
	cancel = nil
}

func TestInstall_ReturnsCancellableContext(t *testing.T) {
	resetForTest()
	c, stop := Install(context.Background())
	defer stop()

	assert.False(t, Cancelled())
	stop()
	assert.True(t, Cancelled())
	<-c.Done()
}

func TestInstall_SecondCallReturnsSameContext(t *testing.T) {
	resetForTest()
	first, stop := Install(context.Background())
	defer stop()
	second, _ := Install(context.Background())

	assert.Equal(t, first, second)
}

func TestCancelled_FalseBeforeInstall(t *testing.T) {
	resetForTest()
	assert.False(t, Cancelled())
}
