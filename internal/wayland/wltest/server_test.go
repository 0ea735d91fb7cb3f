package wltest_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"global-menu/internal/wayland"
	"global-menu/internal/wayland/wltest"
)

// recordingTB keeps Errorf calls instead of failing the test.
type recordingTB struct {
	testing.TB

	mu     sync.Mutex
	errors []string
}

func (r *recordingTB) Errorf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *recordingTB) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

func TestSendRightAfterDial(t *testing.T) {
	for i := 0; i < 20; i++ {
		rec := &recordingTB{TB: t}
		srv := wltest.NewServer(rec, wayland.Global{Name: 1, Interface: "wl_seat", Version: 9})
		conn := srv.Dial()

		srv.Send(srv.NewServerID(), 0, nil)
		require.NoError(t, conn.Roundtrip())
		assert.Empty(t, rec.recorded())
	}
}
