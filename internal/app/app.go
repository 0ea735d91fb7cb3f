package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"global-menu/internal/ipc"
	"global-menu/internal/menu"
	"global-menu/internal/models"
	"global-menu/internal/wayland"
	"global-menu/internal/wm"
	"global-menu/pkg/core"
	"global-menu/pkg/notify"
)

const (
	notificationTitle = "Global menu"

	// shutdownTimeout bounds the wait for the compositor to confirm stop.
	shutdownTimeout = 2 * time.Second
	requestTimeout  = 2 * time.Second
	messageBacklog  = 64
	effectBacklog   = 16
	historyLimit    = 20
)

var (
	errLoopStopped = errors.New("event loop is not running")
	errLoopBusy    = errors.New("event loop busy")
)

// Notifier shows a desktop notification.
type Notifier interface {
	Show(title string, message string, nType notify.NotificationType) error
}

// History stores activations.
type History interface {
	AddActivation(a models.Activation) error
	Recent(limit int) ([]models.Activation, error)
}

// Options configure GlobalMenu. Zero values disable the optional parts.
type Options struct {
	Log      core.Logger
	SelfID   string
	Display  string
	Notifier Notifier
	Checker  *menu.BusChecker
	History  History
}

// GlobalMenu follows the active toplevel and keeps the menu it exports.
type GlobalMenu struct {
	manager *wm.ToplevelManager
	conn    *wayland.Conn
	log     core.Logger
	opts    Options

	current  menu.Menu
	requests chan call
	effects  chan activation
	done     chan struct{}
}

// activation is queued by the event loop for the side-effect worker.
type activation struct {
	at    time.Time
	appID string
	menu  menu.Menu
}

// call runs fn on the event loop goroutine and closes done afterwards.
type call struct {
	fn   func()
	done chan struct{}
}

var _ ipc.Handler = (*GlobalMenu)(nil)

// New wires the callbacks into manager. manager must be built on a
// connection and must not be used by anything else once Run starts.
func New(manager *wm.ToplevelManager, opts Options) *GlobalMenu {
	if opts.Log == nil {
		opts.Log = core.Nop()
	}
	g := &GlobalMenu{
		manager:  manager,
		conn:     manager.Conn(),
		log:      opts.Log,
		opts:     opts,
		current:  menu.Menu{Kind: menu.KindNone},
		requests: make(chan call),
		done:     make(chan struct{}),
	}
	manager.SetSelfID(opts.SelfID)
	manager.SetCallback(g.activeChanged)

	if props, ok := manager.ActiveApp(); ok {
		g.current = menu.Select(props)
		g.log.Info("Initial active app",
			"app_id", wm.Value(props.AppID),
			"menu", g.current.String())
	}
	return g
}

// Run dispatches compositor events until ctx is cancelled or the connection
// fails. On return the manager is closed, which closes the connection when
// the manager opened it.
func (g *GlobalMenu) Run(ctx context.Context) error {
	if g.conn == nil {
		return errors.New("toplevel manager has no wayland connection")
	}
	defer close(g.done)

	var workers sync.WaitGroup
	g.effects = make(chan activation, effectBacklog)
	workers.Add(1)
	go func(effects <-chan activation) {
		defer workers.Done()
		for a := range effects {
			g.applyEffects(a)
		}
	}(g.effects)
	defer workers.Wait()
	defer func() {
		close(g.effects)
		g.effects = nil
	}()

	msgs := make(chan wayland.Message, messageBacklog)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)

	// the reader only touches the socket; every dispatch stays on this goroutine
	go func() {
		for {
			m, err := g.conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case msgs <- m:
			case <-stop:
				return
			}
		}
	}()

	g.log.Info("Event loop started", "tracked", g.manager.Len())
	for {
		select {
		case m := <-msgs:
			if err := g.conn.Dispatch(m); err != nil {
				g.log.Error("Failed to dispatch wayland event", err)
				return multierror.Append(err, g.manager.Close()).ErrorOrNil()
			}
		case err := <-readErr:
			g.log.Error("Wayland connection lost", err)
			return multierror.Append(fmt.Errorf("read wayland event: %w", err), g.manager.Close()).ErrorOrNil()
		case c := <-g.requests:
			c.fn()
			close(c.done)
		case <-ctx.Done():
			g.log.Info("Shutting down")
			return g.shutdown(msgs, readErr)
		}
	}
}

// shutdown destroys the manager, waits for the compositor to process the
// stop request and closes the connection.
func (g *GlobalMenu) shutdown(msgs <-chan wayland.Message, readErr <-chan error) error {
	var result *multierror.Error
	if err := g.manager.Destroy(); err != nil {
		result = multierror.Append(result, err)
	}

	if err := g.flush(msgs, readErr); err != nil {
		result = multierror.Append(result, err)
	}

	if err := g.manager.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	g.log.Info("Toplevel manager closed", "stopped", g.manager.Stopped())
	return result.ErrorOrNil()
}

func (g *GlobalMenu) flush(msgs <-chan wayland.Message, readErr <-chan error) error {
	cb, err := g.conn.Display().Sync()
	if err != nil {
		return fmt.Errorf("sync after stop: %w", err)
	}

	timeout := time.NewTimer(shutdownTimeout)
	defer timeout.Stop()
	for !cb.Done() {
		select {
		case m := <-msgs:
			if err := g.conn.Dispatch(m); err != nil {
				return err
			}
		case err := <-readErr:
			return fmt.Errorf("read wayland event: %w", err)
		case <-timeout.C:
			g.log.Warn("Compositor did not answer the stop request in time")
			return nil
		}
	}
	return nil
}

// do runs fn on the event loop goroutine and waits for it.
func (g *GlobalMenu) do(fn func()) error {
	c := call{fn: fn, done: make(chan struct{})}

	timeout := time.NewTimer(requestTimeout)
	defer timeout.Stop()
	select {
	case g.requests <- c:
	case <-g.done:
		return errLoopStopped
	case <-timeout.C:
		return errLoopBusy
	}
	<-c.done
	return nil
}

// Handle answers an IPC request on the event loop goroutine.
func (g *GlobalMenu) Handle(req ipc.Request) ipc.Response {
	var resp ipc.Response
	if err := g.do(func() { resp = g.handle(req) }); err != nil {
		return ipc.Errorf("%v", err)
	}
	return resp
}

// SetSelfID replaces the app id that is never reported as active. It takes
// effect from the next activation.
func (g *GlobalMenu) SetSelfID(id string) error {
	return g.do(func() {
		if id == g.opts.SelfID {
			return
		}
		g.log.Info("Self id changed", "old", g.opts.SelfID, "new", id)
		g.opts.SelfID = id
		g.manager.SetSelfID(id)
	})
}

func (g *GlobalMenu) handle(req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandActive:
		props, ok := g.manager.ActiveApp()
		if !ok {
			return ipc.Response{Status: ipc.StatusSuccess, Message: "no active toplevel"}
		}
		m := menu.Select(props)
		return ipc.Response{
			Status:  ipc.StatusSuccess,
			Message: m.String(),
			Active:  &props,
			Menu:    &m,
		}
	case ipc.CommandList:
		all := g.manager.Toplevels()
		return ipc.Response{
			Status:    ipc.StatusSuccess,
			Message:   fmt.Sprintf("%d toplevels", len(all)),
			Toplevels: all,
		}
	case ipc.CommandStatus:
		return ipc.Response{
			Status: ipc.StatusSuccess,
			State: &ipc.State{
				Tracked: g.manager.Len(),
				Stopped: g.manager.Stopped(),
				SelfID:  g.opts.SelfID,
				Display: g.opts.Display,
			},
		}
	case ipc.CommandHistory:
		if g.opts.History == nil {
			return ipc.Errorf("history is disabled")
		}
		limit := req.Limit
		if limit <= 0 {
			limit = historyLimit
		}
		recent, err := g.opts.History.Recent(limit)
		if err != nil {
			g.log.Error("Failed to read history", err)
			return ipc.Errorf("read history: %v", err)
		}
		return ipc.Response{
			Status:  ipc.StatusSuccess,
			Message: fmt.Sprintf("%d activations", len(recent)),
			History: recent,
		}
	}
	return ipc.Errorf("unknown command %q", req.Command)
}

// activeChanged runs from inside event dispatch. Side effects are queued
// for the worker started by Run and dropped when it falls behind.
func (g *GlobalMenu) activeChanged(m *wm.ToplevelManager) {
	props, ok := m.ActiveApp()
	if !ok {
		return
	}
	appID := wm.Value(props.AppID)
	selected := menu.Select(props)
	g.current = selected

	g.log.Info("Activated app",
		"app_id", appID,
		"menu", selected.String())

	if g.effects == nil {
		return
	}
	select {
	case g.effects <- activation{at: time.Now(), appID: appID, menu: selected}:
	default:
		g.log.Warn("Dropping activation side effects", "app_id", appID, "backlog", effectBacklog)
	}
}

// applyEffects records, checks and announces one activation, in that order.
func (g *GlobalMenu) applyEffects(a activation) {
	if g.opts.History != nil {
		err := g.opts.History.AddActivation(models.Activation{
			Timestamp: a.at,
			AppID:     a.appID,
			MenuKind:  string(a.menu.Kind),
			Menu:      a.menu.String(),
		})
		if err != nil {
			g.log.Error("Failed to record activation", err, "app_id", a.appID)
		}
	}

	if g.opts.Checker != nil && a.menu.Kind != menu.KindNone {
		if err := g.opts.Checker.Check(a.menu); err != nil {
			g.log.Warn("Menu is not reachable", "app_id", a.appID, "error", err.Error())
		}
	}

	if g.opts.Notifier != nil {
		appID := a.appID
		if appID == "" {
			appID = "(null)"
		}
		msg := fmt.Sprintf("%s: %s", appID, a.menu)
		if err := g.opts.Notifier.Show(notificationTitle, msg, notify.Info); err != nil {
			g.log.Error("Failed to show notification", err, "app_id", a.appID)
		}
	}
}

// Current returns the menu selected for the last activation. Call it from
// the event loop or after Run has returned.
func (g *GlobalMenu) Current() menu.Menu {
	return g.current
}
